package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	conf := NewTestConfig()

	t.Run("template", func(t *testing.T) {
		msg := &EmailMessage{
			TemplateName: "mastery_badge",
			TemplateData: map[string]interface{}{
				"Name":       "Amani",
				"Outcome":    "Label a cell",
				"Percentage": 96.0,
				"Badge":      "gold",
			},
		}
		require.NoError(t, msg.Render(conf))
		assert.Contains(t, msg.TextContent, "Hello Amani,")
		assert.Contains(t, msg.TextContent, `reached mastery (96.0%) in "Label a cell"`)
		assert.Contains(t, msg.TextContent, conf.FrontendBaseURL)
		assert.Contains(t, msg.HTMLContent, "<strong>gold</strong>")
		assert.True(t, msg.HasContent())
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{BodyStr: "hi"}
		require.NoError(t, msg.Render(conf))
		assert.Equal(t, "hi", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "nope"}
		assert.Error(t, msg.Render(conf))
	})
}
