package negotiator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAgreement(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Clause
	}{
		{
			name: "numbered clauses with titles",
			text: "1. Rent: $1,000 per month\n2. Term: 12 months, starting October 1",
			want: []Clause{
				{Number: 1, Title: "Rent", Body: "$1,000 per month"},
				{Number: 2, Title: "Term", Body: "12 months, starting October 1"},
			},
		},
		{
			name: "multi-line clause bodies",
			text: "1. Deposit\nOne month of rent.\nRefundable at move-out.\n2. Pets\nOne cat allowed.",
			want: []Clause{
				{Number: 1, Title: "Deposit", Body: "One month of rent.\nRefundable at move-out."},
				{Number: 2, Title: "Pets", Body: "One cat allowed."},
			},
		},
		{
			name: "parenthesis numbering",
			text: "1) Price: $450\n2) Delivery: within two weeks",
			want: []Clause{
				{Number: 1, Title: "Price", Body: "$450"},
				{Number: 2, Title: "Delivery", Body: "within two weeks"},
			},
		},
		{
			name: "preamble is not a clause",
			text: "The parties agree as follows:\n\n1. Scope: full repaint of the facade",
			want: []Clause{
				{Number: 1, Title: "Scope", Body: "full repaint of the facade"},
			},
		},
		{
			name: "free text yields no clauses",
			text: "Both parties agree to keep talking next week.",
			want: nil,
		},
		{
			name: "empty draft",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAgreement(tt.text)
			assert.Equal(t, tt.text, got.Text, "full draft text must be preserved")
			assert.Equal(t, tt.want, got.Clauses)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "json fence",
			in:   "```json\n{\"agreement\": \"1. Rent: $1000\"}\n```",
			want: `{"agreement": "1. Rent: $1000"}`,
		},
		{
			name: "bare fence",
			in:   "```\n{\"agreement\": \"ok\"}\n```",
			want: `{"agreement": "ok"}`,
		},
		{
			name: "object surrounded by prose",
			in:   "Here is the final agreement:\n{\"agreement\": \"done\"}\nLet me know.",
			want: `{"agreement": "done"}`,
		},
		{
			name: "plain object",
			in:   `{"agreement": "done"}`,
			want: `{"agreement": "done"}`,
		},
		{
			name: "no json at all",
			in:   "  just prose  ",
			want: "just prose",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSON(tt.in)
			require.Equal(t, tt.want, got)
		})
	}
}
