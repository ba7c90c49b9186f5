package chatbot

import (
	"regexp"
	"strings"
)

// IntentKind is the classified purpose of a message.
type IntentKind string

const (
	IntentOrderStatus  IntentKind = "order_status"
	IntentPaymentInfo  IntentKind = "payment_info"
	IntentDeliveryInfo IntentKind = "delivery_info"
	IntentHistory      IntentKind = "history"
	IntentGreeting     IntentKind = "greeting"
	IntentUnknown      IntentKind = "unknown"
)

// Intent is the classifier output. OrderNumber is empty when the message
// carried no digits or the intent does not extract entities.
type Intent struct {
	Kind        IntentKind
	OrderNumber string
}

// HasOrderNumber reports whether an order number was extracted.
func (i Intent) HasOrderNumber() bool {
	return i.OrderNumber != ""
}

type intentRule struct {
	kind     IntentKind
	keywords []string
	extract  bool
}

// intentRules is evaluated in order; the first rule with a matching keyword
// wins, so a message asking both for status and amount is a status question.
var intentRules = []intentRule{
	{kind: IntentOrderStatus, keywords: []string{"état", "en est", "statut"}, extract: true},
	{kind: IntentPaymentInfo, keywords: []string{"combien", "montant", "payer", "dû"}, extract: true},
	{kind: IntentDeliveryInfo, keywords: []string{"quand", "livraison", "prêt", "terminé"}, extract: true},
	{kind: IntentHistory, keywords: []string{"historique", "dernière", "avant"}},
	{kind: IntentGreeting, keywords: []string{"bonjour", "salut", "hello"}},
}

var orderNumberPattern = regexp.MustCompile(`#?(\d+)`)

// Classify maps a free-text message to an Intent. It is a pure function.
func Classify(message string) Intent {
	lower := strings.ToLower(message)
	for _, rule := range intentRules {
		if !containsAny(lower, rule.keywords) {
			continue
		}
		intent := Intent{Kind: rule.kind}
		if rule.extract {
			intent.OrderNumber = extractOrderNumber(message)
		}
		return intent
	}
	return Intent{Kind: IntentUnknown}
}

func extractOrderNumber(message string) string {
	m := orderNumberPattern.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return m[1]
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
