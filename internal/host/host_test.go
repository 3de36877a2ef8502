package host

import "testing"

func TestSearchURL(t *testing.T) {
	tests := []struct {
		base, label, want string
	}{
		{"/bat/", "1234567890", "/bat/?search=1234567890"},
		{"/bat", "0000000001", "/bat/?search=0000000001"},
		{"", "42", "/?search=42"},
		{"/bat/", "12 34", "/bat/?search=12+34"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := SearchURL(tt.base, tt.label); got != tt.want {
				t.Errorf("SearchURL(%q, %q): got %q, want %q", tt.base, tt.label, got, tt.want)
			}
		})
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	buttons := []Button{ButtonSnap, ButtonClose}

	r.ShowButtons(ModalCapture, buttons)
	buttons[0] = ButtonCrop // must not alias the recorded slice
	r.SetFeedback(ModalScan, "12")
	r.ShowError(ModalCapture, "oops")
	r.ClearError(ModalCapture)
	r.CloseModal(ModalScan)
	r.Navigate("/bat/?search=1")
	r.Reload()

	want := "buttons,feedback,error,error_cleared,close,navigate,reload"
	if r.String() != want {
		t.Errorf("kinds: got %s, want %s", r.String(), want)
	}

	ev, ok := r.Last("buttons")
	if !ok || ev.Buttons[0] != ButtonSnap {
		t.Errorf("recorded buttons aliased caller slice: %v", ev.Buttons)
	}
	if r.Count("error") != 1 {
		t.Errorf("Count(error): got %d", r.Count("error"))
	}
	if _, ok := r.Last("missing"); ok {
		t.Error("Last should report false for unknown kind")
	}
}
