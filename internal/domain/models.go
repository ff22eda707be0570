package domain

import "time"

// Option is one selectable answer of a question. IDs are positions within the question.
type Option struct {
	ID      int    `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"correct" yaml:"correct"`
}

// Question models a multiple choice question with one or more correct options.
type Question struct {
	ID              string   `json:"id" yaml:"id"`
	Prompt          string   `json:"prompt" yaml:"prompt"`
	DurationSeconds int      `json:"durationSeconds" yaml:"durationSeconds" validate:"min=1"`
	Points          int      `json:"points" yaml:"points"`
	Options         []Option `json:"options" yaml:"options" validate:"unique=ID"`
}

// CorrectOptionIDs lists the ids of the correct options in declaration order.
func (q Question) CorrectOptionIDs() []int {
	ids := make([]int, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// Quiz is a collection of questions owned by a host.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	OwnerID   string     `json:"ownerId" yaml:"ownerId"`
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Snapshot returns a deep copy of the quiz so later edits cannot leak into a running session.
func (q Quiz) Snapshot() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]Option(nil), question.Options...)
		out.Questions[i] = question
	}
	return out
}

// Player is a participant of a single session.
type Player struct {
	ID       string    `json:"playerId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// SessionStatus is the externally visible state of a session.
type SessionStatus struct {
	SessionID            string    `json:"sessionId"`
	QuizID               string    `json:"quizId"`
	SnapshotID           string    `json:"snapshotId"`
	Stage                Stage     `json:"state"`
	AutoStartNum         int       `json:"autoStartNum"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	NumQuestions         int       `json:"numQuestions"`
	Players              []string  `json:"players"`
	LastEditedAt         time.Time `json:"lastEditedAt"`
}

// SessionList splits a quiz's sessions by whether they have ended.
type SessionList struct {
	ActiveSessions   []string `json:"activeSessions"`
	InactiveSessions []string `json:"inactiveSessions"`
}

// PlayerStatus is what a player sees about the session they joined.
type PlayerStatus struct {
	Stage        Stage `json:"state"`
	NumQuestions int   `json:"numQuestions"`
	AtQuestion   int   `json:"atQuestion"`
}

// PlayerOption hides correctness from players.
type PlayerOption struct {
	ID   int    `json:"answerId"`
	Text string `json:"answer"`
}

// PlayerQuestion is the current question as shown to players.
type PlayerQuestion struct {
	QuestionID      string         `json:"questionId"`
	Prompt          string         `json:"question"`
	DurationSeconds int            `json:"duration"`
	Points          int            `json:"points"`
	Answers         []PlayerOption `json:"answers"`
}

// RankedUser is one row of the final leaderboard.
type RankedUser struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// QuestionResult aggregates outcomes of a single closed question.
type QuestionResult struct {
	QuestionID         string   `json:"questionId"`
	PlayersCorrectList []string `json:"playersCorrectList"`
	AverageAnswerTime  int      `json:"averageAnswerTime"`
	PercentCorrect     int      `json:"percentCorrect"`
}

// FinalResults is the report produced when a session reaches FINAL_RESULTS.
type FinalResults struct {
	UsersRankedByScore []RankedUser     `json:"usersRankedByScore"`
	QuestionResults    []QuestionResult `json:"questionResults"`
}

// ChatMessage is a message sent by a player into the session chat.
type ChatMessage struct {
	PlayerID    string    `json:"playerId"`
	PlayerName  string    `json:"playerName"`
	MessageBody string    `json:"messageBody"`
	TimeSent    time.Time `json:"timeSent"`
}
