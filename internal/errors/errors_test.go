package errors

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
)

var errSentinel = stderrors.New("sentinel")

func TestNew(t *testing.T) {
	err := New(CodeTargetMissing)

	if err.Code != CodeTargetMissing {
		t.Errorf("expected code %s, got %s", CodeTargetMissing, err.Code)
	}
	if err.Category != CategorySetup {
		t.Errorf("expected category setup, got %s", err.Category)
	}
	if err.Message != "Binding target missing" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("SB999")
	if err.Message != "Unknown error" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestErrorString(t *testing.T) {
	err := New(CodeMalformedArg).WithDetail(`attr: "title"`)

	want := `SB004: Malformed binding argument: attr: "title"`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	plain := Newf(CategoryCLI, "bad %s", "flag")
	if plain.Error() != "bad flag" {
		t.Errorf("got %q", plain.Error())
	}
}

func TestWrapIs(t *testing.T) {
	err := New(CodeTargetMissing).Wrap(errSentinel)

	if !stderrors.Is(err, errSentinel) {
		t.Error("wrapped sentinel should satisfy errors.Is")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeConfigRead) != nil {
		t.Error("nil error should stay nil")
	}

	coded := New(CodeConfigInvalid)
	if FromError(coded, CodeConfigRead) != coded {
		t.Error("structured errors should pass through")
	}

	wrapped := FromError(errSentinel, CodeConfigRead)
	if wrapped.Code != CodeConfigRead || !stderrors.Is(wrapped, errSentinel) {
		t.Errorf("unexpected wrap %#v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()

	err := New(CodeTargetMissing).WithDetail("#app").Wrap(errSentinel)
	out := err.Format()

	for _, want := range []string{"Binding target missing [SB001]", "#app", "caused by: sentinel", "hint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format output missing %q:\n%s", want, out)
		}
	}

	var buf bytes.Buffer
	Print(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "plain") {
		t.Errorf("Print should render plain errors, got %q", buf.String())
	}
}

func TestCodesRegistered(t *testing.T) {
	for _, code := range Codes() {
		tmpl, ok := Lookup(code)
		if !ok || tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("code %s has an incomplete template", code)
		}
	}
}
