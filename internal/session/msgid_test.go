package session

import (
	"errors"
	"testing"
)

func TestSerializeMessageID(t *testing.T) {
	got := SerializeMessageID(true, "5511999999999@s.whatsapp.net", "3EB0A9252D8CB2")
	want := "true_5511999999999@s.whatsapp.net_3EB0A9252D8CB2"
	if got != want {
		t.Errorf("SerializeMessageID = %q, want %q", got, want)
	}
}

func TestParseMessageID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MessageID
		wantErr bool
	}{
		{
			name:  "outbound",
			input: "true_5511999999999@s.whatsapp.net_3EB0A9252D8CB2",
			want:  MessageID{FromMe: true, ChatJID: "5511999999999@s.whatsapp.net", RawID: "3EB0A9252D8CB2"},
		},
		{
			name:  "inbound group",
			input: "false_1203630000000000@g.us_AAA111",
			want:  MessageID{FromMe: false, ChatJID: "1203630000000000@g.us", RawID: "AAA111"},
		},
		{
			name:  "raw id with underscores",
			input: "false_chat@g.us_AB_CD_EF",
			want:  MessageID{FromMe: false, ChatJID: "chat@g.us", RawID: "AB_CD_EF"},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "one segment", input: "AAA111", wantErr: true},
		{name: "two segments", input: "true_chat@g.us", wantErr: true},
		{name: "empty chat segment", input: "true__AAA111", wantErr: true},
		{name: "empty raw segment", input: "true_chat@g.us_", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessageID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Fatalf("ParseMessageID(%q) error = %v, want ErrInvalidIdentifier", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMessageID(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMessageID(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMessageIDRoundTrip(t *testing.T) {
	id := SerializeMessageID(false, "1203630000000000@g.us", "3EB0DEADBEEF")
	parsed, err := ParseMessageID(id)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.FromMe || parsed.ChatJID != "1203630000000000@g.us" || parsed.RawID != "3EB0DEADBEEF" {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}
