package source

import "fmt"

// Span is a byte range [Start, End) of one file. Spans of synthesized nodes
// have no file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) IsValid() bool {
	return s.File != NoFileID
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other when they share a file.
func (s Span) Cover(other Span) Span {
	if !s.IsValid() {
		return other
	}
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
