package validate

import (
	"errors"
	"strings"
	"testing"
)

type signup struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,max=150,username"`
	Password  string `json:"password" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"eqfield=Password"`
	Status    string `json:"status" validate:"omitempty,oneof=draft published"`
	Title     string `json:"title" validate:"notblank,max=10"`
}

func valid() signup {
	return signup{
		Email: "a@b.co", Username: "jane.doe+1", Password: "longenough",
		Password2: "longenough", Status: "draft", Title: "Hi",
	}
}

func TestStructValid(t *testing.T) {
	if err := Struct(valid()); err != nil {
		t.Fatalf("Struct: %v", err)
	}
}

func TestStructFieldMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*signup)
		field  string
		want   string
	}{
		{"missing email", func(s *signup) { s.Email = "" }, "email", "required"},
		{"bad email", func(s *signup) { s.Email = "nope" }, "email", "valid email"},
		{"bad username", func(s *signup) { s.Username = "jane doe" }, "username", "only letters"},
		{"long username", func(s *signup) { s.Username = strings.Repeat("a", 151) }, "username", "at most 150"},
		{"short password", func(s *signup) { s.Password = "short"; s.Password2 = "short" }, "password", "at least 8"},
		{"mismatch", func(s *signup) { s.Password2 = "different1" }, "password2", "didn't match"},
		{"bad status", func(s *signup) { s.Status = "archived" }, "status", "draft published"},
		{"blank title", func(s *signup) { s.Title = "   " }, "title", "required"},
		{"long title counts runes", func(s *signup) { s.Title = strings.Repeat("ă", 11) }, "title", "at most 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := Struct(s)
			var errs Errors
			if !errors.As(err, &errs) {
				t.Fatalf("want Errors, got %v", err)
			}
			msg, ok := errs[tt.field]
			if !ok {
				t.Fatalf("no message for %q in %v", tt.field, errs)
			}
			if !strings.Contains(msg, tt.want) {
				t.Errorf("message %q does not contain %q", msg, tt.want)
			}
		})
	}
}

func TestUnicodeUsername(t *testing.T) {
	s := valid()
	s.Username = "ștefan_01"
	if err := Struct(s); err != nil {
		t.Errorf("letters outside ASCII should be allowed: %v", err)
	}
}

func TestErrorsAddKeepsFirst(t *testing.T) {
	e := Errors{}
	e.Add("email", "first")
	e.Add("email", "second")
	if e["email"] != "first" {
		t.Errorf("Add overwrote message: %q", e["email"])
	}
	if e.Err() == nil {
		t.Error("Err() should be non-nil")
	}
	if (Errors{}).Err() != nil {
		t.Error("empty Errors should be nil error")
	}
	if !strings.Contains(e.Error(), "email: first") {
		t.Errorf("Error() = %q", e.Error())
	}
}
