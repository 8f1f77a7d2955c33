package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantMsg  string
		wantCat  Category
		wantExit int
	}{
		{
			name:     "lock timeout",
			code:     "E001",
			wantMsg:  "Timed out waiting for the registry lock",
			wantCat:  CategoryLock,
			wantExit: 9,
		},
		{
			name:     "corrupt registry",
			code:     "E010",
			wantMsg:  "Registry file is corrupted",
			wantCat:  CategoryRegistry,
			wantExit: 10,
		},
		{
			name:     "docker missing",
			code:     "E050",
			wantMsg:  "Docker is not installed",
			wantCat:  CategoryExternal,
			wantExit: 3,
		},
		{
			name:     "unknown error code",
			code:     "E999",
			wantMsg:  "Unknown error",
			wantCat:  "",
			wantExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.Exit != tt.wantExit {
				t.Errorf("Exit = %d, want %d", err.Exit, tt.wantExit)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", ".env")
	if err.Message != `file ".env" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `file ".env" not found`)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestBerthError_Error(t *testing.T) {
	err := New("E001")
	got := err.Error()
	want := "E001: Timed out waiting for the registry lock"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	// Without code
	err2 := &BerthError{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}
}

func TestBerthError_WithLocation(t *testing.T) {
	// Create a temp registry with some content
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "registry.conf")
	content := `[_home_me_src_shop]
path=/home/me/src/shop
APP_PORT=8000
this line is garbage
VITE_PORT=5100
`
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E010").WithLocation(tmpFile, 4, 0)

	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.File != tmpFile {
		t.Errorf("Location.File = %q, want %q", err.Location.File, tmpFile)
	}
	if err.Location.Line != 4 {
		t.Errorf("Location.Line = %d, want %d", err.Location.Line, 4)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}
}

func TestBerthError_WithSuggestion(t *testing.T) {
	err := New("E032").WithSuggestion("Run berth cleanup first")
	if err.Suggestion != "Run berth cleanup first" {
		t.Errorf("Suggestion = %q, want %q", err.Suggestion, "Run berth cleanup first")
	}
}

func TestBerthError_WithExample(t *testing.T) {
	example := "cp .env.example .env"
	err := New("E031").WithExample(example)
	if err.Example != example {
		t.Errorf("Example = %q, want %q", err.Example, example)
	}
}

func TestBerthError_WithDetail(t *testing.T) {
	err := New("E001").WithDetail("Custom detail")
	if err.Detail != "Custom detail" {
		t.Errorf("Detail = %q, want %q", err.Detail, "Custom detail")
	}

	err = New("E001").WithDetailf("lock held for %ds", 12)
	if err.Detail != "lock held for 12s" {
		t.Errorf("Detail = %q, want %q", err.Detail, "lock held for 12s")
	}
}

func TestBerthError_Wrap(t *testing.T) {
	inner := New("E011")
	outer := New("E010").Wrap(inner)

	if outer.Wrapped != inner {
		t.Error("Wrapped error mismatch")
	}
	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
}

func TestFromError(t *testing.T) {
	// nil error
	if FromError(nil, "E001") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	// Already BerthError
	be := New("E001")
	if FromError(be, "E010") != be {
		t.Error("FromError should return BerthError as-is")
	}

	// Standard error
	stdErr := &testError{msg: "test error"}
	result := FromError(stdErr, "E011")
	if result.Wrapped != stdErr {
		t.Error("Standard error should be wrapped")
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestIs(t *testing.T) {
	err := New("E040")
	if !Is(err, "E040") {
		t.Error("Is should match the error's own code")
	}
	if Is(err, "E041") {
		t.Error("Is should not match a different code")
	}

	// Wrapped in a plain error
	wrapped := fmt.Errorf("while provisioning: %w", err)
	if !Is(wrapped, "E040") {
		t.Error("Is should see through fmt.Errorf wrapping")
	}

	if Is(stderrors.New("plain"), "E040") {
		t.Error("Is should be false for non-coded errors")
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "lock timeout", err: New("E001"), want: 9},
		{name: "corrupt registry", err: New("E010"), want: 10},
		{name: "registry write", err: New("E011"), want: 11},
		{name: "no ports", err: New("E020"), want: 13},
		{name: "compose missing", err: New("E030"), want: 5},
		{name: "env missing", err: New("E031"), want: 6},
		{name: "env has ports", err: New("E032"), want: 7},
		{name: "env write", err: New("E033"), want: 12},
		{name: "already registered", err: New("E040"), want: 8},
		{name: "docker missing", err: New("E050"), want: 3},
		{name: "docker not running", err: New("E051"), want: 4},
		{name: "cancelled code", err: New("E060"), want: 130},
		{name: "context cancellation", err: context.Canceled, want: 130},
		{name: "wrapped cancellation", err: fmt.Errorf("run: %w", context.Canceled), want: 130},
		{name: "plain error", err: stderrors.New("boom"), want: 1},
		{name: "wrapped coded error", err: fmt.Errorf("init: %w", New("E020")), want: 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitStatus(tt.err); got != tt.want {
				t.Errorf("ExitStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{
			name: "nil location",
			loc:  nil,
			want: "",
		},
		{
			name: "with column",
			loc:  &Location{File: "registry.conf", Line: 10, Column: 5},
			want: "registry.conf:10:5",
		},
		{
			name: "without column",
			loc:  &Location{File: "registry.conf", Line: 10, Column: 0},
			want: "registry.conf:10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.loc.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	// Create a temp registry with a garbage line
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "registry.conf")
	content := `[_home_me_src_shop]
path=/home/me/src/shop
not a key value line
APP_PORT=8000
`
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E010").
		WithLocation(tmpFile, 3, 0).
		WithSuggestion("Fix or delete the registry file").
		WithExample("rm " + tmpFile)

	formatted := err.Format()

	// Check that key components are present
	if !strings.Contains(formatted, "E010") {
		t.Error("Format should contain error code")
	}
	if !strings.Contains(formatted, "Registry file is corrupted") {
		t.Error("Format should contain error message")
	}
	if !strings.Contains(formatted, tmpFile) {
		t.Error("Format should contain file path")
	}
	if !strings.Contains(formatted, "Hint:") {
		t.Error("Format should contain hint")
	}
	if !strings.Contains(formatted, "Example:") {
		t.Error("Format should contain example")
	}
	if !strings.Contains(formatted, "Learn more:") {
		t.Error("Format should contain doc URL")
	}
}

func TestFormatWrappedCause(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E011").Wrap(stderrors.New("disk full"))
	formatted := err.Format()
	if !strings.Contains(formatted, "Caused by: disk full") {
		t.Error("Format should contain the wrapped cause")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E010").WithLocation("registry.conf", 10, 5)
	compact := err.FormatCompact()

	want := "registry.conf:10:5: E010: Registry file is corrupted"
	if compact != want {
		t.Errorf("FormatCompact() = %q, want %q", compact, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E010").WithLocation("registry.conf", 10, 5)
	json := err.FormatJSON()

	if !strings.Contains(json, `"code":"E010"`) {
		t.Error("JSON should contain code")
	}
	if !strings.Contains(json, `"category":"registry"`) {
		t.Error("JSON should contain category")
	}
	if !strings.Contains(json, `"message":"Registry file is corrupted"`) {
		t.Error("JSON should contain message")
	}
	if !strings.Contains(json, `"location":`) {
		t.Error("JSON should contain location")
	}
	if !strings.Contains(json, `"exit":10`) {
		t.Error("JSON should contain exit status")
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Error("GetAllCodes() should return codes")
	}

	// Check that E001 is in the list
	found := false
	for _, code := range codes {
		if code == "E001" {
			found = true
			break
		}
	}
	if !found {
		t.Error("E001 should be in the codes list")
	}
}

func TestGetTemplate(t *testing.T) {
	template, ok := GetTemplate("E001")
	if !ok {
		t.Error("E001 should exist")
	}
	if template.Message != "Timed out waiting for the registry lock" {
		t.Error("Template message mismatch")
	}

	_, ok = GetTemplate("E999")
	if ok {
		t.Error("E999 should not exist")
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{
		Category: CategoryCLI,
		Message:  "Custom test error",
		Detail:   "This is a test error",
		DocURL:   "https://berth.dev/docs/errors/E999",
		Exit:     42,
	})

	err := New("E999")
	if err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
	if err.Exit != 42 {
		t.Errorf("Exit = %d, want %d", err.Exit, 42)
	}

	// Cleanup
	delete(registry, "E999")
}

func TestExitStatusesDistinct(t *testing.T) {
	// Every fatal failure kind must map to its own status so scripts can
	// dispatch on them.
	seen := map[int]string{}
	for _, code := range GetAllCodes() {
		template, _ := GetTemplate(code)
		if template.Exit <= 1 {
			continue
		}
		if prev, dup := seen[template.Exit]; dup {
			t.Errorf("exit status %d shared by %s and %s", template.Exit, prev, code)
		}
		seen[template.Exit] = code
	}
}

func TestWrapText(t *testing.T) {
	// Test short text that doesn't need wrapping
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	// Test text that needs wrapping
	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	// Test empty string returns empty/nil
	got = wrapText("", 10)
	if len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	// With colors enabled
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	// With colors disabled
	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
