package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/chat"
)

func TestDetectTickers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"explicit mentions win", "How does @MDIZX compare to TSVPX?", []string{"MDIZX"}},
		{"mentions keep order and dedupe", "@TSVPX vs @MDIZX and @TSVPX", []string{"TSVPX", "MDIZX"}},
		{"bare tokens without mentions", "Is MDIZX a fund of funds?", []string{"MDIZX"}},
		{"stop words are ignored", "I want THE AND OR data FOR MDIZX", []string{"MDIZX"}},
		{"class suffix", "What about @BRK.B?", []string{"BRK.B"}},
		{"lower case is not a ticker", "what does mdizx hold", []string{}},
		{"long words are not tickers", "WHATEVER happened", []string{}},
		{"overlap keyword is not a ticker", "@OVERLAP of @MDIZX and @TSVPX", []string{"MDIZX", "TSVPX"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chat.DetectTickers(tt.text)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMentionsOverlap(t *testing.T) {
	assert.True(t, chat.MentionsOverlap("@overlap MDIZX TSVPX"))
	assert.True(t, chat.MentionsOverlap("show me the @Overlap please"))
	assert.False(t, chat.MentionsOverlap("what is the overlap"))
	assert.False(t, chat.MentionsOverlap("@overlapping"))
}
