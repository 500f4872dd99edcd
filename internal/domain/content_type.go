package domain

// ContentType identifies which kind of reviewable content a memory card tracks.
// Each content type is persisted independently by the orchestrator.
type ContentType string

// Supported content types
const (
	ContentTypeFlashcard    ContentType = "flashcard"
	ContentTypeExamQuestion ContentType = "exam_question"
	ContentTypeErrorEntry   ContentType = "error_entry"
)

// ContentTypes lists every supported content type.
func ContentTypes() []ContentType {
	return []ContentType{ContentTypeFlashcard, ContentTypeExamQuestion, ContentTypeErrorEntry}
}

// IsValid reports whether c is a supported content type.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeFlashcard, ContentTypeExamQuestion, ContentTypeErrorEntry:
		return true
	default:
		return false
	}
}
