package mock

import (
	"fmt"
	"math/rand"
	"strings"
)

var (
	handles = []string{"city_news", "tech_daily", "crypto_watch", "market_pulse", "travel_notes", "go_weekly"}
	topics  = []string{"news", "technology", "finance", "travel", "sports", "other"}

	statements = []string{
		"The new release ships with faster startup",
		"Prices moved sharply after the announcement",
		"Our team published the weekly digest",
		"Registration for the meetup is open",
		"Traffic is heavy on the ring road this morning",
	}
	questionsPool = []string{
		"Who else is going to the meetup?",
		"Does anyone have the full report?",
		"What do you think about the update?",
	}
	exclamationsPool = []string{
		"This is huge!",
		"Do not miss it!",
		"Thanks everyone!",
	}
	intensePool = []string{"URGENT", "BREAKING", "ATTENTION", "FREE"}
	emojiPool   = []string{"🔥", "🚀", "😂", "⚡", "✅"}
	tagPool     = []string{"#news", "#golang", "#markets", "#travel", "#update"}
	domainPool  = []string{"example.com", "example.org", "news.example.net"}
)

type message struct {
	plain    string
	markdown string

	emails       []string
	tgLinks      []string
	wwwLinks     []string
	mentions     []string
	hashtags     []string
	phones       []string
	intense      []string
	questions    []string
	exclamations []string
	emojis       []string
}

// compose builds a message text and the entity lists an extractor would
// have found in it.
func compose(rng *rand.Rand) message {
	var m message
	var plain, md []string

	add := func(p, d string) {
		plain = append(plain, p)
		md = append(md, d)
	}

	if rng.Intn(3) == 0 {
		w := pick(rng, intensePool)
		m.intense = append(m.intense, w)
		add(w+":", "**"+w+":**")
	}
	s := pick(rng, statements) + "."
	add(s, s)

	if rng.Intn(2) == 0 {
		q := pick(rng, questionsPool)
		m.questions = append(m.questions, q)
		add(q, "_"+q+"_")
	}
	if rng.Intn(2) == 0 {
		e := pick(rng, exclamationsPool)
		m.exclamations = append(m.exclamations, e)
		add(e, e)
	}
	if rng.Intn(3) == 0 {
		handle := "@" + pick(rng, handles)
		m.mentions = append(m.mentions, handle)
		add("cc "+handle, "cc "+handle)
	}
	if rng.Intn(3) == 0 {
		link := "https://t.me/" + pick(rng, handles)
		m.tgLinks = append(m.tgLinks, link)
		add(link, "["+link+"]("+link+")")
	}
	if rng.Intn(3) == 0 {
		link := "https://" + pick(rng, domainPool) + "/post/" + fmt.Sprint(rng.Intn(1000))
		m.wwwLinks = append(m.wwwLinks, link)
		add("More: "+link, "More: ["+link+"]("+link+")")
	}
	if rng.Intn(4) == 0 {
		email := "press@" + pick(rng, domainPool)
		m.emails = append(m.emails, email)
		add("Contact "+email, "Contact `"+email+"`")
	}
	if rng.Intn(5) == 0 {
		phone := fmt.Sprintf("+7 9%02d %03d-%02d-%02d", rng.Intn(100), rng.Intn(1000), rng.Intn(100), rng.Intn(100))
		m.phones = append(m.phones, phone)
		add("Call "+phone, "Call "+phone)
	}
	if rng.Intn(2) == 0 {
		tag := pick(rng, tagPool)
		m.hashtags = append(m.hashtags, tag)
		add(tag, tag)
	}
	if rng.Intn(2) == 0 {
		e := pick(rng, emojiPool)
		m.emojis = append(m.emojis, e)
		add(e, e)
	}

	m.plain = strings.Join(plain, " ")
	m.markdown = strings.Join(md, " ")
	return m
}
