package exam

// Section is the fixed topical category a passage or question belongs to.
type Section string

const (
	SectionEnglish      Section = "ENGLISH"
	SectionGKCA         Section = "GK_CA"
	SectionLegal        Section = "LEGAL_REASONING"
	SectionLogical      Section = "LOGICAL_REASONING"
	SectionQuantitative Section = "QUANTITATIVE_TECHNIQUES"
)

// Sections lists every section in canonical order. Mock assembly iterates this.
var Sections = []Section{
	SectionEnglish,
	SectionGKCA,
	SectionLegal,
	SectionLogical,
	SectionQuantitative,
}

// ParseSection validates a raw section value against the closed set.
func ParseSection(s string) (Section, bool) {
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

// TestType distinguishes full mocks from single-section tests.
type TestType string

const (
	TestTypeMock      TestType = "MOCK"
	TestTypeSectional TestType = "SECTIONAL"
)

// Passage is a block of reading content owning a group of questions.
// Selection operates at passage granularity: its questions are never split.
type Passage struct {
	ID          string   `json:"id"`
	Section     Section  `json:"section"`
	Content     string   `json:"content"`
	QuestionIDs []string `json:"question_ids"`
}

type Question struct {
	ID             string   `json:"id"`
	PassageID      string   `json:"passage_id,omitempty"` // empty for standalone questions
	Section        Section  `json:"section"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correct_answers,omitempty"` // stripped when served to test-takers
	PositiveMarks  float64  `json:"positive_marks"`
	NegativeMarks  float64  `json:"negative_marks"` // stored as a positive magnitude
}

// Test is an assembled examination. QuestionIDs fixes canonical numbering:
// position in the list + 1 = question number.
type Test struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	Title           string   `json:"title"`
	Type            TestType `json:"type"`
	Section         Section  `json:"section,omitempty"` // set iff SECTIONAL
	DurationMinutes int      `json:"duration_minutes"`
	PassageIDs      []string `json:"passage_ids"`
	QuestionIDs     []string `json:"question_ids"`
	CreatedAt       int64    `json:"created_at"`
}

// Attempt is one user's timed run through a test. It is mutated exactly
// twice: at creation and at completion, after which it is frozen.
type Attempt struct {
	ID             string                 `json:"id"`
	TestID         string                 `json:"test_id"`
	UserID         string                 `json:"user_id"`
	AttemptNumber  int                    `json:"attempt_number"`
	IsLatest       bool                   `json:"is_latest"`
	Answers        map[string]interface{} `json:"answers"`        // question id -> token or []token
	QuestionTimes  map[string]int         `json:"question_times"` // question id -> seconds
	TotalQuestions int                    `json:"total_questions"`
	Completed      bool                   `json:"completed"`

	// Populated at completion.
	Score          float64 `json:"score"`
	Percentage     float64 `json:"percentage"`
	CorrectAnswers int     `json:"correct_answers"`
	WrongAnswers   int     `json:"wrong_answers"`
	Unattempted    int     `json:"unattempted"`
	TotalAttempted int     `json:"total_attempted"`
	TotalTimeSec   int     `json:"total_time_sec"`
	StartedAt      int64   `json:"started_at"`
	CompletedAt    int64   `json:"completed_at,omitempty"`
}

// TestSummary is the list-view projection of a test plus its latest attempt.
type TestSummary struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Type              TestType `json:"type"`
	Section           Section  `json:"section,omitempty"`
	DurationMinutes   int      `json:"duration_minutes"`
	NumberOfQuestions int      `json:"number_of_questions"`
	NumberOfPassages  int      `json:"number_of_passages"`
	IsAttempted       bool     `json:"is_attempted"`
	LastScore         *float64 `json:"last_score,omitempty"` // latest attempt percentage
	ObtainedMarks     *float64 `json:"obtained_marks,omitempty"`
	TotalMarks        float64  `json:"total_marks"`
	AttemptCount      int      `json:"attempt_count"`
	LatestAttemptID   string   `json:"latest_attempt_id,omitempty"`
	AttemptedAt       int64    `json:"attempted_at,omitempty"`
	CreatedAt         int64    `json:"created_at"`
}

// ReviewQuestion is a question annotated with the user's outcome for the
// results view. IsCorrect is nil when the question was never attempted.
type ReviewQuestion struct {
	Question
	QuestionNumber int         `json:"question_number"`
	UserAnswer     interface{} `json:"user_answer"`
	IsCorrect      *bool       `json:"is_correct"`
	MarksObtained  float64     `json:"marks_obtained"`
	TimeTakenSec   int         `json:"time_taken_sec"`
}

// Results bundles everything the review UI needs for one graded attempt.
type Results struct {
	Test      Test             `json:"test"`
	Attempt   Attempt          `json:"test_attempt"`
	Questions []ReviewQuestion `json:"questions"`
	Passages  []Passage        `json:"passages"`
}

// TestView is the take-a-test payload: ordered questions without answer keys.
type TestView struct {
	Test      Test               `json:"test"`
	Questions []NumberedQuestion `json:"questions"`
	Passages  []Passage          `json:"passages"`
}

type NumberedQuestion struct {
	Question
	QuestionNumber int `json:"question_number"`
}
