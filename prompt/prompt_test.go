package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildContainsFourLabeledSections(t *testing.T) {
	got := Build(BuildArgs{
		UserRequest:  "fix the bug",
		WorkingDir:   "/tmp/work",
		FocusedFiles: "(none)",
		History:      "(none)",
	})

	for _, want := range []string{
		"User query/request:\n\nfix the bug\n\n",
		"Working directory:\n\n/tmp/work\n\n",
		"Focused files:\n\n(none)\n\n",
		"Last iteration:\n\n(none)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing section %q in prompt:\n%s", want, got)
		}
	}
	if !strings.HasPrefix(got, "You are an AI agent") {
		t.Fatalf("prompt does not start with fixed template: %q", got[:40])
	}
}

func TestBuildOmitsCustomInstructionsWhenEmpty(t *testing.T) {
	got := Build(BuildArgs{})
	if strings.Contains(got, "CUSTOM INSTRUCTIONS") {
		t.Fatal("expected no custom instructions section")
	}
}

func TestBuildIncludesCustomInstructionsWithSpacing(t *testing.T) {
	got := Build(BuildArgs{ExtraInstructions: "Always run tests first"})
	if !strings.Contains(got, "# CUSTOM INSTRUCTIONS\n\nAlways run tests first\n\n--- CURRENT STATE ---") {
		t.Fatalf("custom instructions section malformed:\n%s", got)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	args := BuildArgs{UserRequest: "a", WorkingDir: "b", FocusedFiles: "c", History: "d"}
	if Build(args) != Build(args) {
		t.Fatal("Build is not deterministic for identical args")
	}
}

func TestTruncateTextFitsUnchanged(t *testing.T) {
	got := TruncateText("short", 100, "note")
	if got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateTextCutsAtPrecedingNewline(t *testing.T) {
	text := "aaaa\nbbbb\ncccc"
	got := TruncateText(text, 8, "TRUNCATED")
	if !strings.HasPrefix(got, "aaaa\nbbbb") && !strings.HasPrefix(got, "aaaa") {
		t.Fatalf("unexpected cut: %q", got)
	}
	if !strings.HasSuffix(got, "\n\nTRUNCATED") {
		t.Fatalf("expected note suffix, got %q", got)
	}
	if strings.Contains(got, "cccc") {
		t.Fatalf("expected truncation to drop trailing content: %q", got)
	}
}

func TestTruncateTextIdempotentOnceWithinBudget(t *testing.T) {
	text := strings.Repeat("x", 50) + "\n" + strings.Repeat("y", 50)
	once := TruncateText(text, 40, "NOTE")
	twice := TruncateText(once, 40, "NOTE")
	if once != twice {
		t.Fatalf("truncation not idempotent:\nonce=%q\ntwice=%q", once, twice)
	}
}

func TestTruncateHistoryEmptyIsNone(t *testing.T) {
	if got := TruncateHistory("", 100); got != "(none)" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateHistoryFitsUnchanged(t *testing.T) {
	if got := TruncateHistory("short history", 100); got != "short history" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateHistoryKeepsTail(t *testing.T) {
	history := "=== Iteration 1 ===\nold output here\n=== Iteration 2 ===\nrecent output here"
	got := TruncateHistory(history, 20)
	if !strings.HasPrefix(got, "[... previous iteration truncated to fit context limits ...]\n\n") {
		t.Fatalf("missing truncation notice: %q", got)
	}
	if !strings.Contains(got, "recent output here") {
		t.Fatalf("expected tail to be preserved: %q", got)
	}
	if strings.Contains(got, "old output here") {
		t.Fatalf("expected head to be dropped: %q", got)
	}
}

func TestTruncateHistoryFallsBackWhenNoNewlineNearby(t *testing.T) {
	history := strings.Repeat("z", 2000)
	got := TruncateHistory(history, 50)
	if !strings.HasPrefix(got, "[... previous iteration truncated to fit context limits ...]\n\n") {
		t.Fatalf("missing truncation notice: %q", got)
	}
}

func TestFocusedFilesContentTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello world\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := FocusedFilesContent([]string{path})
	if !strings.Contains(got, "--- "+path+" ---\n") || !strings.Contains(got, "hello world\n") {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestFocusedFilesContentBinaryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.bin")
	data := []byte{0x00, 0x01, 0x02, 0x03}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got := FocusedFilesContent([]string{path})
	if !strings.Contains(got, "[Binary data (4 bytes)]") {
		t.Fatalf("expected binary marker, got %q", got)
	}
}

func TestFocusedFilesContentMissingFile(t *testing.T) {
	got := FocusedFilesContent([]string{"/no/such/file/at/all"})
	if !strings.Contains(got, "[Error reading file:") {
		t.Fatalf("expected read error marker, got %q", got)
	}
}

func TestFocusedFilesContentMultipleJoinedByBlankLine(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "one.txt")
	p2 := filepath.Join(dir, "two.txt")
	os.WriteFile(p1, []byte("one\n"), 0o644)
	os.WriteFile(p2, []byte("two\n"), 0o644)

	got := FocusedFilesContent([]string{p1, p2})
	idx1 := strings.Index(got, "one\n")
	idx2 := strings.Index(got, "--- "+p2)
	if idx1 == -1 || idx2 == -1 || idx2 < idx1 {
		t.Fatalf("expected both files in order: %q", got)
	}
	if !strings.Contains(got, "one\n\n\n--- "+p2) {
		t.Fatalf("expected blank-line separator between files: %q", got)
	}
}
