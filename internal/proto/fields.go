package proto

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/siatlite/casedesk/internal/common"
)

// String returns the string field key of s, or "" when absent or not a string.
func String(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// Int64 returns the numeric field key of s truncated to an integer.
func Int64(s *structpb.Struct, key string) int64 {
	if s == nil {
		return 0
	}
	return int64(s.GetFields()[key].GetNumberValue())
}

// Time parses an RFC 3339 field. An absent field yields the zero time.
func Time(s *structpb.Struct, key string) (time.Time, error) {
	raw := String(s, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", common.ErrorValidation, key)
	}
	return t, nil
}

// FormatTime renders t for a Struct field.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewStruct is structpb.NewStruct for maps that only hold strings, numbers,
// booleans and nil.
func NewStruct(fields map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// Empty is the response of methods that return nothing.
func Empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}
