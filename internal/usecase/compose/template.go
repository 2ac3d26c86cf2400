package compose

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/usecase/classifier"
)

// NoResultsMessage is the generic clarifying reply.
const NoResultsMessage = "I couldn't find any products matching your query. " +
	"Could you try rephrasing your request or provide more specific details about what you're looking for?"

const (
	noPhonesMessage = "I don't currently have any smartphones, mobile phones, or cell phones in stock. " +
		"However, I do have several electronics accessories that work great with phones, like power banks, " +
		"headphones, and smart home devices. Would you like to see some of those options, " +
		"or are you looking for something specific?"
	noGiftsMessage = "I don't have any specific gift suggestions available right now. " +
		"Could you tell me more about the occasion or the person's interests? " +
		"I'd be happy to help you find something perfect!"
	noPriceMessage = "I don't have pricing information for the specific item you're asking about. " +
		"Could you provide more details about what you're looking for?"
)

// jewelryHighlights is how many products the jewelry reply lists.
const jewelryHighlights = 3

var (
	phoneTerms   = []string{"phone", "smartphone", "mobile", "cell", "telephone"}
	giftTerms    = []string{"gift", "present", "birthday", "anniversary"}
	priceTerms   = []string{"price", "cost", "expensive", "cheap"}
	similarTerms = []string{"similar", "like", "alternative"}
	showTerms    = []string{"show", "display", "list"}
	metalTerms   = []string{"gold", "silver", "diamond", "pearl"}
)

var jewelryIntros = []struct {
	term   string
	format string
}{
	{"earring", "I found some beautiful earrings matching '%s':"},
	{"necklace", "Here are some elegant necklaces matching '%s':"},
	{"bracelet", "I found these lovely bracelets matching '%s':"},
	{"ring", "Here are some stunning rings matching '%s':"},
	{"watch", "I found these stylish watches matching '%s':"},
}

// EmptyMessage picks a clarifying reply for a query that found nothing.
func EmptyMessage(query string) string {
	words := classifier.Tokenize(query)
	switch {
	case hasAny(words, phoneTerms):
		return noPhonesMessage
	case hasAny(words, giftTerms):
		return noGiftsMessage
	case hasAny(words, priceTerms):
		return noPriceMessage
	}
	return NoResultsMessage
}

// Template is the deterministic reply used whenever the summarizer is
// unavailable. products must not be empty.
func Template(query string, products []candidate.ScoredProduct, jewelry bool) string {
	if jewelry {
		return jewelryReply(query, products)
	}
	words := classifier.Tokenize(query)

	if len(products) == 1 {
		p := &products[0].Product
		cat := p.Category()
		if cat == "" {
			cat = "product"
		}
		switch {
		case hasAny(words, priceTerms):
			return fmt.Sprintf("The %s is priced at %s. It's a great %s option!", p.Name(), money(p.Price()), cat)
		case hasAny(words, similarTerms):
			return fmt.Sprintf("I found %s which might be similar to what you're looking for. It's priced at %s.",
				p.Name(), money(p.Price()))
		}
		return fmt.Sprintf("I found %s for you! It's a %s priced at %s. Would you like to know more about it?",
			p.Name(), cat, money(p.Price()))
	}

	names := topNames(products, 3)
	lo, hi := priceRange(products)
	span := money(lo) + " - " + money(hi)
	switch {
	case hasAny(words, giftTerms[:2]):
		return fmt.Sprintf("I found several great gift options for you! Here are some top picks: %s. "+
			"Prices range from %s. Which one catches your eye?", names, span)
	case hasAny(words, showTerms):
		return fmt.Sprintf("Here are some products I found: %s. Prices range from %s. "+
			"Let me know if you'd like details about any of them!", names, span)
	}
	return fmt.Sprintf("I found several options that might interest you: %s. Prices range from %s. "+
		"Would you like more information about any of these?", names, span)
}

func jewelryReply(query string, products []candidate.ScoredProduct) string {
	words := classifier.Tokenize(query)
	intro := fmt.Sprintf("I found these jewelry items matching '%s':", query)
	if hasAny(words, metalTerms) {
		intro = fmt.Sprintf("I found these beautiful jewelry pieces matching '%s':", query)
	}
	for _, ji := range jewelryIntros {
		if classifier.ContainsTerm(words, ji.term) {
			intro = fmt.Sprintf(ji.format, query)
			break
		}
	}

	var b strings.Builder
	b.WriteString(intro)
	for i := 0; i < len(products) && i < jewelryHighlights; i++ {
		p := &products[i].Product
		price := "Price not available"
		if p.Price() > 0 {
			price = money(p.Price())
		}
		fmt.Fprintf(&b, "\n• %s (%s)", p.Name(), price)
	}
	if extra := len(products) - jewelryHighlights; extra > 0 {
		fmt.Fprintf(&b, "\n\nAnd %d more beautiful pieces!", extra)
	}
	return b.String()
}

func topNames(products []candidate.ScoredProduct, n int) string {
	names := make([]string, 0, n)
	for i := 0; i < len(products) && i < n; i++ {
		names = append(names, products[i].Product.Name())
	}
	return strings.Join(names, ", ")
}

func priceRange(products []candidate.ScoredProduct) (lo, hi float64) {
	for i := range products {
		p := products[i].Product.Price()
		if i == 0 || p < lo {
			lo = p
		}
		if i == 0 || p > hi {
			hi = p
		}
	}
	return lo, hi
}

func money(v float64) string { return fmt.Sprintf("$%.2f", v) }

func hasAny(words, terms []string) bool {
	for _, t := range terms {
		if classifier.ContainsTerm(words, t) {
			return true
		}
	}
	return false
}
