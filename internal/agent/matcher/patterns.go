package matcher

import (
	"regexp"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

// patternRule pairs a tag with the phrasings that select it. Rules are
// evaluated in slice order and the first matching regex wins.
type patternRule struct {
	tag     model.PatternTag
	regexes []*regexp.Regexp
}

// entityRule extracts one entity type. When a regex has a capture group the
// first group is the value, otherwise the whole match.
type entityRule struct {
	typ        model.EntityType
	regexes    []*regexp.Regexp
	needsDigit bool
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

func buildPatterns() []patternRule {
	return []patternRule{
		{model.PatternOrderByProduct, compileAll(
			`order.*(?:for|of|about)\s+['"]?(\w+[\w\s]*)['"]?`,
			`(?:where|status).*order.*['"]?(\w+[\w\s]*)['"]?`,
			`['"]?(\w+[\w\s]*)['"]?\s*order`,
		)},
		{model.PatternOrderByID, compileAll(
			`order\s*(?:id|#|number)?\s*[:\s]?\s*([a-f0-9-]{8,})`,
			`(?:order|track)\s+([A-Z0-9-]{8,})`,
		)},
		{model.PatternUserOrders, compileAll(
			`(?:my|all|recent)\s*orders?`,
			`orders?\s*i\s*(?:made|placed)`,
			`(?:show|list|get)\s*(?:my|all)?\s*orders?`,
		)},
		{model.PatternRecentOrders, compileAll(
			`(?:last|recent|latest)\s*(?:\d+)?\s*orders?`,
			`orders?\s*(?:from|in)\s*(?:last|past)\s*(?:week|month|day)`,
		)},
		{model.PatternTrackShipment, compileAll(
			`(?:track|where|status).*(?:shipment|package|delivery)`,
			`(?:shipment|package|delivery).*(?:status|location|where)`,
			`where\s*is\s*(?:my)?\s*(?:order|package)`,
		)},
		{model.PatternShipmentByOrder, compileAll(
			`(?:shipment|delivery|tracking).*order`,
			`order.*(?:shipment|delivery|tracking)`,
		)},
		{model.PatternUserTransactions, compileAll(
			`(?:my|all|recent)?\s*transactions?`,
			`(?:payment|transaction)\s*history`,
			`(?:show|list)\s*(?:my)?\s*transactions?`,
		)},
		{model.PatternRefundStatus, compileAll(
			`refund\s*(?:status|processed|received)?`,
			`(?:status|where).*refund`,
			`(?:is|has)\s*(?:my)?\s*refund`,
		)},
		{model.PatternUserTickets, compileAll(
			`(?:my|open|all)?\s*(?:support)?\s*tickets?`,
			`ticket\s*status`,
			`(?:show|list)\s*(?:my)?\s*tickets?`,
		)},
		{model.PatternTicketByOrder, compileAll(
			`ticket.*order`,
			`order.*ticket`,
		)},
		{model.PatternWalletBalance, compileAll(
			`(?:my|wallet)\s*balance`,
			`(?:how\s*much|what)\s*(?:in|is)\s*(?:my)?\s*wallet`,
		)},
	}
}

func buildEntityRules() []entityRule {
	return []entityRule{
		{typ: model.EntityProductName, regexes: compileAll(
			`['"]([^'"]+)['"]`,
			`(?:gaming|smart|laptop|phone|watch|monitor|headphone|keyboard|mouse|tablet|camera|speaker|shoe|shirt|dress)[\w\s]*`,
		)},
		{typ: model.EntityOrderID, needsDigit: true, regexes: compileAll(
			`([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`,
			`(?:order|id|#)\s*[:\s]?\s*([A-Z0-9-]{8,})`,
		)},
		{typ: model.EntityTrackingNumber, needsDigit: true, regexes: compileAll(
			`(?:track|tracking).*?([A-Z]{2,4}[0-9]{8,})`,
		)},
		{typ: model.EntityAmount, regexes: compileAll(
			`\$?\s*(\d+(?:\.\d{2})?)`,
		)},
		{typ: model.EntityTicketID, needsDigit: true, regexes: compileAll(
			`ticket\s*(?:id|#|number)?\s*[:\s]?\s*([A-Z0-9-]{6,})`,
		)},
		{typ: model.EntityTransactionID, needsDigit: true, regexes: compileAll(
			`(?:transaction|txn|reference)\s*(?:id|#)?\s*[:\s]?\s*([A-Z0-9-]{6,})`,
		)},
		{typ: model.EntityUserID, needsDigit: true, regexes: compileAll(
			`user\s*(?:id)?\s*[:#]?\s*([A-Z0-9-]{4,})`,
		)},
		{typ: model.EntityDateRange, regexes: compileAll(
			`(?:last|past)\s+(?:\d+\s+)?(?:day|week|month|year)s?`,
		)},
	}
}
