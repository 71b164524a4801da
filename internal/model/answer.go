package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// AnswerKind tells which shape an AnswerValue holds.
type AnswerKind uint8

const (
	AnswerKindNone AnswerKind = iota
	AnswerKindIndex
	AnswerKindIndices
	AnswerKindFlags
	AnswerKindText
)

var ErrInvalidAnswer = errors.New("invalid answer value")

// AnswerValue is a student answer or an answer key. Its shape depends on the
// question type: an option index (single choice), a list of indices
// (multiple choice), a list of booleans (statement matrix) or free text.
// On the wire it is the bare JSON value: 2, [0,2], [true,false], "text".
type AnswerValue struct {
	kind    AnswerKind
	index   int
	indices []int
	flags   []bool
	text    string
}

func IndexAnswer(i int) AnswerValue { return AnswerValue{kind: AnswerKindIndex, index: i} }

func IndicesAnswer(indices ...int) AnswerValue {
	return AnswerValue{kind: AnswerKindIndices, indices: append([]int{}, indices...)}
}

func FlagsAnswer(flags ...bool) AnswerValue {
	return AnswerValue{kind: AnswerKindFlags, flags: append([]bool{}, flags...)}
}

func TextAnswer(s string) AnswerValue { return AnswerValue{kind: AnswerKindText, text: s} }

func (a AnswerValue) Kind() AnswerKind { return a.kind }

func (a AnswerValue) Index() (int, bool) { return a.index, a.kind == AnswerKindIndex }

func (a AnswerValue) Indices() ([]int, bool) { return a.indices, a.kind == AnswerKindIndices }

func (a AnswerValue) Flags() ([]bool, bool) { return a.flags, a.kind == AnswerKindFlags }

func (a AnswerValue) Text() (string, bool) { return a.text, a.kind == AnswerKindText }

// Clone returns a copy that shares no slices with a.
func (a AnswerValue) Clone() AnswerValue {
	c := a
	if a.indices != nil {
		c.indices = append([]int{}, a.indices...)
	}
	if a.flags != nil {
		c.flags = append([]bool{}, a.flags...)
	}
	return c
}

// MarshalJSON encodes the bare value.
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerKindIndex:
		return json.Marshal(a.index)
	case AnswerKindIndices:
		if a.indices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.indices)
	case AnswerKindFlags:
		if a.flags == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.flags)
	case AnswerKindText:
		return json.Marshal(a.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON infers the shape from the JSON token. An empty array decodes
// as an empty index list and null as no answer.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidAnswer)
	}
	if bytes.Equal(data, []byte("null")) {
		*a = AnswerValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		*a = TextAnswer(s)
		return nil

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		if len(raw) == 0 {
			*a = IndicesAnswer()
			return nil
		}
		if first := bytes.TrimSpace(raw[0]); bytes.Equal(first, []byte("true")) || bytes.Equal(first, []byte("false")) {
			var flags []bool
			if err := json.Unmarshal(data, &flags); err != nil {
				return fmt.Errorf("%w: mixed list: %v", ErrInvalidAnswer, err)
			}
			*a = FlagsAnswer(flags...)
			return nil
		}
		var indices []int
		if err := json.Unmarshal(data, &indices); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		*a = IndicesAnswer(indices...)
		return nil

	default:
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		*a = IndexAnswer(i)
		return nil
	}
}
