package orgdir

import (
	"reflect"
	"strings"
	"testing"
)

func TestReadFileKeywords(t *testing.T) {
	file1 := "#+TITLE: My file title\n" +
		"\n" +
		"# Whitespace before and after\n" +
		"#+WHITESPACE:    \tit's trimmed     \t  \n" +
		"\n" +
		"#+EMPTY:\n" +
		"\n" +
		"#+lowercase: lowercase\n" +
		"\n" +
		"#+MULTI: value1\n" +
		"\n" +
		"# Another comment\n" +
		"\n" +
		"# Blank line with extra whitespace\n" +
		"     \t\t  \t \t  \n" +
		"\n" +
		"#+multi: value2\n" +
		"\n" +
		"#+AFFILIATED: won't get read\n" +
		"#+AFFILIATED2: This won't either\n" +
		"This is a (paragraph) element\n" +
		"\n" +
		"#+AFTER_ELEM: also won't get read.\n" +
		"\n" +
		"* Headline\n"

	got, err := ReadFileKeywords(strings.NewReader(file1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string][]string{
		"TITLE":      {"My file title"},
		"WHITESPACE": {"it's trimmed"},
		"EMPTY":      {""},
		"LOWERCASE":  {"lowercase"},
		"MULTI":      {"value1", "value2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadFileKeywords_KeywordBeforeEOF(t *testing.T) {
	input := "#+TITLE: My file title\n\n#+BEFORE_EOF: foo"
	got, err := ReadFileKeywords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string][]string{
		"TITLE":      {"My file title"},
		"BEFORE_EOF": {"foo"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadFileKeywords_KeywordBeforeHeadline(t *testing.T) {
	input := "#+TITLE: My file title\n\n#+BEFORE_HEADLINE: foo\n* Headline\n"
	got, err := ReadFileKeywords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string][]string{
		"TITLE":           {"My file title"},
		"BEFORE_HEADLINE": {"foo"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadFileKeywords_NoSpaceAfterColon(t *testing.T) {
	// Without the space the line reads as a comment, which flushes the
	// run above it instead of extending it.
	input := "#+TITLE: kept\n#+BAD:dropped\n"
	got, err := ReadFileKeywords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string][]string{"TITLE": {"kept"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
