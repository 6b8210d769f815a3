package templates

import (
	"strings"

	"github.com/osteele/liquid"
	"github.com/pkg/errors"

	"github.com/unclebandit/coldreach-backend/internal/model"
)

// Kind selects a built-in layout.
type Kind int

const (
	ColdEmail Kind = iota
	FollowUp
	MeetingRequest

	kindCount
)

var kindNames = [kindCount]string{
	ColdEmail:      "cold_email",
	FollowUp:       "follow_up",
	MeetingRequest: "meeting_request",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return kindNames[ColdEmail]
	}
	return kindNames[k]
}

// Kinds lists every built-in kind.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind maps a tag to its kind. Unknown tags get the cold email layout.
func ParseKind(tag string) (Kind, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for k, name := range kindNames {
		if name == tag {
			return Kind(k), true
		}
	}
	return ColdEmail, false
}

const signature = `{{ username }}
{{ position }}
[Your Company]
{{ contact_info }}`

const opening = `{% if recent_activity != "" %}I recently came across your {{ recent_activity }} and was impressed by your work at {{ company }}.` +
	`{% elsif industry_news != "" %}I noticed the recent news about {{ industry_news }} in the {{ industry }} sector and thought of {{ company }}.` +
	`{% else %}I hope this email finds you well. I noticed your role as {{ role }} at {{ company }} and thought I'd reach out.{% endif %}`

const valueProp = `{% if pain_points != "" %}Many {{ role }}s in {{ industry }} face challenges with {{ pain_points }}. Our solution has helped similar companies increase efficiency by 30% and reduce costs significantly.` +
	`{% else %}Our solution has helped many companies in {{ industry }} increase efficiency by 30% and reduce costs significantly.{% endif %}`

type layout struct {
	liquid      string
	placeholder string
}

// layouts is indexed by Kind; the array length makes a missing kind a compile error.
var layouts = [kindCount]layout{
	ColdEmail: {
		liquid: `Subject: Quick Question About {{ company }}'s Approach to Growth

Hi {{ name }},

` + opening + `

` + valueProp + `

I'd love to share how we've helped other {{ industry }} companies achieve similar results. Would you be open to a brief 15-minute call next week to explore if there might be a fit?

Looking forward to your response,

` + signature,
		placeholder: `Subject: Quick Question About {{company}}'s Approach to Growth

Hi {{name}},

I hope this email finds you well. I noticed your role as {{role}} at {{company}} and thought I'd reach out.

Many {{role}}s in {{industry}} face challenges with {{pain_points}}. Our solution has helped similar companies increase efficiency by 30% and reduce costs significantly.

I'd love to share how we've helped other {{industry}} companies achieve similar results. Would you be open to a brief 15-minute call next week to explore if there might be a fit?

Looking forward to your response,

{{username}}
{{position}}
[Your Company]
{{contact_info}}`,
	},
	FollowUp: {
		liquid: `Hi {{ name }},

I wanted to follow up on my previous email regarding how we can help {{ company }} with {{ pain_points }}. Have you had a chance to consider my proposal?

I'm available to discuss how our solution has helped companies like yours improve their results by 30% on average.

Let me know if you have 15 minutes this week for a quick call.

Best regards,
` + signature,
		placeholder: `Hi {{name}},

I wanted to follow up on my previous email regarding how we can help {{company}} with {{pain_points}}. Have you had a chance to consider my proposal?

I'm available to discuss how our solution has helped companies like yours improve their results by 30% on average.

Let me know if you have 15 minutes this week for a quick call.

Best regards,
{{username}}
{{position}}
[Your Company]
{{contact_info}}`,
	},
	MeetingRequest: {
		liquid: `Hi {{ name }},

I'd like to schedule a brief 15-minute call to discuss how our solution can help {{ company }} address {{ pain_points }}.

Are you available next Tuesday or Wednesday afternoon?

Looking forward to connecting!

Best regards,
` + signature,
		placeholder: `Hi {{name}},

I'd like to schedule a brief 15-minute call to discuss how our solution can help {{company}} address {{pain_points}}.

Are you available next Tuesday or Wednesday afternoon?

Looking forward to connecting!

Best regards,
{{username}}
{{position}}
[Your Company]
{{contact_info}}`,
	},
}

// Generator renders the built-in layouts. Templates are parsed once.
type Generator struct {
	compiled [kindCount]*liquid.Template
}

// NewGenerator parses every built-in layout.
func NewGenerator() (*Generator, error) {
	engine := liquid.NewEngine()
	g := &Generator{}
	for k := Kind(0); k < kindCount; k++ {
		tpl, err := engine.ParseString(layouts[k].liquid)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s layout", k)
		}
		g.compiled[k] = tpl
	}
	return g, nil
}

// Generate renders kind for one recipient. Out of range kinds use the cold email layout.
func (g *Generator) Generate(kind Kind, r model.Recipient, sender model.SenderIdentity) (string, error) {
	if kind < 0 || kind >= kindCount {
		kind = ColdEmail
	}
	out, err := g.compiled[kind].RenderString(bindings(r, sender))
	if err != nil {
		return "", errors.Wrapf(err, "failed to render %s", kind)
	}
	return out, nil
}

// Source returns the {{field}} form of a built-in layout, suitable for Render.
func Source(kind Kind) string {
	if kind < 0 || kind >= kindCount {
		kind = ColdEmail
	}
	return layouts[kind].placeholder
}

func bindings(r model.Recipient, sender model.SenderIdentity) liquid.Bindings {
	b := liquid.Bindings{
		"recent_activity": r.Get("recent_activity"),
		"industry_news":   r.Get("industry_news"),
	}
	for field, fallback := range recipientFallbacks {
		v := r.Get(field)
		if v == "" {
			v = fallback
		}
		b[field] = v
	}
	for field, fallback := range senderFallbacks {
		v := senderValue(sender, field)
		if v == "" {
			v = fallback
		}
		b[field] = v
	}
	return b
}
