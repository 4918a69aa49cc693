package restaurant

import (
	"fmt"
	"strings"
)

const DefaultPolicy = "Be helpful and polite."

const hostDirectives = `If you don't know the answer, say you will check with a manager.
Be concise and friendly.`

// BuildInstruction renders the grounding instruction for one session.
// Empty hours, menu or policy render as empty sections.
func BuildInstruction(c Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a helpful restaurant host for %s.\n\n", c.Name)

	b.WriteString("Restaurant Info:\n")
	fmt.Fprintf(&b, "Address: %s\n", c.Address)
	fmt.Fprintf(&b, "Phone: %s\n\n", c.Phone)

	b.WriteString("Hours:\n")
	for _, h := range c.Hours {
		fmt.Fprintf(&b, "%s: %s\n", h.Day, h.Hours)
	}
	b.WriteString("\n")

	b.WriteString("Menu:\n")
	for _, item := range c.Menu {
		b.WriteString(menuLine(item))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("Your Policy (Follow these rules strictly):\n")
	if c.Policy == nil {
		b.WriteString(DefaultPolicy + "\n")
	} else {
		for _, rule := range c.Policy.Rules {
			b.WriteString(rule + "\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(hostDirectives)
	return b.String()
}

func menuLine(item MenuItem) string {
	line := fmt.Sprintf("%s ($%.2f): %s", item.Name, item.Price, item.Description)
	if len(item.Allergens) > 0 {
		line += " Allergens: " + strings.Join(item.Allergens, ", ") + "."
	}
	if len(item.Tags) > 0 {
		line += " Tags: " + strings.Join(item.Tags, ", ") + "."
	}
	return line
}
