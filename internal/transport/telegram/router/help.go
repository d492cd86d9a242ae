package router

import (
	"html"
	"strings"
)

// helpText renders HTML help: the command list, or details for one command.
func (r *Router) helpText(topic string) string {
	topic = strings.TrimPrefix(strings.TrimSpace(topic), "/")
	if topic == "" {
		return r.helpList()
	}
	c, ok := r.Lookup(topic)
	if !ok {
		return "❓ <b>Unknown command</b>\nType <code>/help</code> for the list."
	}

	lines := []string{"📚 <b>Help</b> <code>/" + html.EscapeString(c.Name) + "</code>"}
	if d := strings.TrimSpace(c.Description); d != "" {
		lines = append(lines, html.EscapeString(d))
	}
	if c.Access == AccessChatAdmin {
		lines = append(lines, "🔒 <i>Chat admins only</i>")
	}
	if u := strings.TrimSpace(c.Usage); u != "" {
		lines = append(lines, "", "<b>Usage</b>", "<code>"+html.EscapeString(u)+"</code>")
	}
	if len(c.Aliases) > 0 {
		lines = append(lines, "", "<b>Aliases</b>")
		for _, a := range c.Aliases {
			lines = append(lines, "• <code>/"+html.EscapeString(a)+"</code>")
		}
	}
	return strings.Join(lines, "\n")
}

func (r *Router) helpList() string {
	lines := []string{
		"📚 <b>Commands</b>",
		"Type <code>/help &lt;command&gt;</code> for details.",
		"",
	}
	for _, c := range r.commands() {
		prefix := "• "
		if c.Access == AccessChatAdmin {
			prefix = "• 🔒 "
		}
		line := prefix + "<code>/" + html.EscapeString(c.Name) + "</code>"
		if d := strings.TrimSpace(c.Description); d != "" {
			line += " - " + html.EscapeString(d)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
