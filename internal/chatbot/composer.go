package chatbot

import (
	"fmt"
	"strings"

	"github.com/wolfman30/orderdesk/internal/orders"
)

// ResultType is the intentType reported to callers.
type ResultType string

const (
	TypeOrderStatus  ResultType = "order_status"
	TypePaymentInfo  ResultType = "payment_info"
	TypeDeliveryInfo ResultType = "delivery_info"
	TypeHistory      ResultType = "history"
	TypeInfo         ResultType = "info"
	TypeError        ResultType = "error"
)

// Follow-up questions. Each one classifies back to the intent it names.
const (
	SuggestOrderStatus = "Où en est ma commande ?"
	SuggestPaymentDue  = "Combien je dois payer ?"
	SuggestDelivery    = "Quand ma commande sera-t-elle prête ?"
	SuggestHistory     = "Voir mon historique"

	exampleOrderStatus = "Où en est ma commande #123 ?"
)

// Error payload codes.
const (
	ErrorCodeOrderNotFound = "order_not_found"
	ErrorCodeUnrecognized  = "unrecognized_message"
)

// Reply is a rendered answer before it is wrapped into a Result.
type Reply struct {
	Type        ResultType
	Text        string
	Suggestions []string
	Payload     any
}

// OrderDetails is the payload of order status and delivery replies.
type OrderDetails struct {
	Order   orders.OrderView `json:"order"`
	Summary FinancialSummary `json:"summary"`
}

// HistoryPayload lists the orders rendered in a history reply.
type HistoryPayload struct {
	Orders []orders.OrderView `json:"orders"`
}

// ErrorPayload marks not-found and unrecognized replies.
type ErrorPayload struct {
	Error       string `json:"error"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

// Composer renders replies. Money and dates always go through the injected
// formatters.
type Composer struct {
	money MoneyFormatter
	date  DateFormatter
}

// NewComposer creates a composer; nil formatters fall back to defaults.
func NewComposer(money MoneyFormatter, date DateFormatter) *Composer {
	if money == nil {
		money = NewCurrencyFormatter("")
	}
	if date == nil {
		date = NewDateFormatter("", nil)
	}
	return &Composer{money: money, date: date}
}

// StatusLabel maps an order status to its customer-facing label.
func StatusLabel(status orders.OrderStatus) string {
	switch status {
	case orders.StatusPending:
		return "en attente de traitement"
	case orders.StatusInProgress:
		return "en cours de traitement"
	case orders.StatusReady:
		return "prête pour la livraison"
	case orders.StatusDelivered:
		return "livrée"
	default:
		return string(status)
	}
}

func statusGlyph(status orders.OrderStatus) string {
	switch status {
	case orders.StatusPending:
		return "⏳"
	case orders.StatusInProgress:
		return "🔄"
	case orders.StatusReady:
		return "✅"
	case orders.StatusDelivered:
		return "📦"
	default:
		return "•"
	}
}

func (c *Composer) deliveryMessage(order orders.OrderView) string {
	switch order.Status {
	case orders.StatusPending:
		return "Votre commande est en attente de traitement. Elle sera prise en charge très bientôt : comptez en général 2 à 3 jours avant qu'elle soit prête."
	case orders.StatusInProgress:
		return "Votre commande est en cours de traitement. Elle devrait être prête d'ici 24 à 48 heures."
	case orders.StatusReady:
		return fmt.Sprintf("Bonne nouvelle ! Votre commande est prête. Vous pouvez la récupérer dès maintenant à l'agence %s.", order.AgencyName)
	case orders.StatusDelivered:
		return "Votre commande a déjà été livrée. Merci pour votre confiance !"
	default:
		return fmt.Sprintf("Statut actuel de votre commande : %s. Contactez votre agence pour connaître le délai.", order.Status)
	}
}

// OrderStatus renders the full status card of an order.
func (c *Composer) OrderStatus(order orders.OrderView) Reply {
	fin := AggregateSingle(order)

	var b strings.Builder
	c.writeOrderHeader(&b, "📦", order)
	fmt.Fprintf(&b, "Statut : %s\n\n", StatusLabel(order.Status))
	fmt.Fprintf(&b, "💰 Montant total : %s\n", c.money(order.TotalAmount))
	fmt.Fprintf(&b, "✅ Déjà payé : %s\n", c.money(fin.PaidAmount))
	fmt.Fprintf(&b, "⏳ Reste à payer : %s", c.money(fin.RemainingAmount))
	if len(order.Items) > 0 {
		b.WriteString("\n\nServices :")
		for _, item := range order.Items {
			fmt.Fprintf(&b, "\n- %s x%d", item.ServiceName, item.Quantity)
		}
	}

	return Reply{
		Type:        TypeOrderStatus,
		Text:        b.String(),
		Suggestions: []string{SuggestPaymentDue, SuggestDelivery, SuggestHistory},
		Payload:     OrderDetails{Order: order, Summary: fin},
	}
}

// OrderNotFound is returned when no order matches a status question.
func (c *Composer) OrderNotFound(orderNumber string) Reply {
	return Reply{
		Type:        TypeError,
		Text:        notFoundText(orderNumber),
		Suggestions: []string{SuggestHistory, SuggestPaymentDue},
		Payload:     ErrorPayload{Error: ErrorCodeOrderNotFound, OrderNumber: orderNumber},
	}
}

// PaymentDue renders the outstanding balance across orders. orderNumber is set
// when the question targeted a single order.
func (c *Composer) PaymentDue(summary DueSummary, orderNumber string) Reply {
	if summary.OrderCount == 0 && len(summary.Breakdown) == 0 {
		text := "✅ Vous n'avez aucun paiement en attente. Toutes vos commandes sont réglées."
		if orderNumber != "" {
			text = fmt.Sprintf("✅ Aucun paiement en attente pour la commande #%s.", orderNumber)
		}
		return Reply{
			Type:        TypePaymentInfo,
			Text:        text,
			Suggestions: []string{SuggestOrderStatus, SuggestHistory},
			Payload:     summary,
		}
	}

	count := max(summary.OrderCount, len(summary.Breakdown))
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Montant total à payer : %s (%d commande(s))", c.money(summary.TotalDue), count)
	for _, entry := range summary.Breakdown {
		fmt.Fprintf(&b, "\n- Commande #%s du %s : reste %s", entry.OrderNumber, c.date(entry.CreatedAt), c.money(entry.RemainingAmount))
	}
	if hidden := count - len(summary.Breakdown); hidden > 0 {
		fmt.Fprintf(&b, "\n... et %d autre(s) commande(s) non détaillée(s), incluses dans le total.", hidden)
	}
	return Reply{
		Type:        TypePaymentInfo,
		Text:        b.String(),
		Suggestions: []string{SuggestOrderStatus, SuggestDelivery, SuggestHistory},
		Payload:     summary,
	}
}

// Delivery renders the delivery outlook of an order.
func (c *Composer) Delivery(order orders.OrderView) Reply {
	var b strings.Builder
	c.writeOrderHeader(&b, "🚚", order)
	b.WriteString("\n")
	b.WriteString(c.deliveryMessage(order))

	return Reply{
		Type:        TypeDeliveryInfo,
		Text:        b.String(),
		Suggestions: []string{SuggestOrderStatus, SuggestPaymentDue, SuggestHistory},
		Payload:     OrderDetails{Order: order, Summary: AggregateSingle(order)},
	}
}

// DeliveryNotFound is returned when no order matches a delivery question.
func (c *Composer) DeliveryNotFound(orderNumber string) Reply {
	return Reply{
		Type:        TypeError,
		Text:        notFoundText(orderNumber),
		Suggestions: []string{SuggestHistory, SuggestOrderStatus},
		Payload:     ErrorPayload{Error: ErrorCodeOrderNotFound, OrderNumber: orderNumber},
	}
}

// History renders a numbered list of orders, newest first.
func (c *Composer) History(list []orders.OrderView) Reply {
	if len(list) == 0 {
		return Reply{
			Type:        TypeHistory,
			Text:        "📋 Vous n'avez encore aucune commande.",
			Suggestions: []string{SuggestOrderStatus, SuggestPaymentDue},
			Payload:     HistoryPayload{Orders: []orders.OrderView{}},
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Vos %d dernière(s) commande(s) :", len(list))
	for i, order := range list {
		fmt.Fprintf(&b, "\n%d. %s #%s - %s - %s (%s)",
			i+1,
			statusGlyph(order.Status),
			order.OrderNumber,
			c.date(order.CreatedAt),
			c.money(order.TotalAmount),
			order.Status,
		)
	}
	return Reply{
		Type:        TypeHistory,
		Text:        b.String(),
		Suggestions: []string{SuggestOrderStatus, SuggestPaymentDue, SuggestDelivery},
		Payload:     HistoryPayload{Orders: list},
	}
}

// Greeting is the fixed welcome reply.
func (c *Composer) Greeting() Reply {
	return Reply{
		Type: TypeInfo,
		Text: "Bonjour ! 👋 Je suis votre assistant commandes. Je peux vous renseigner sur l'état de vos commandes, " +
			"les montants à payer, les délais de livraison et votre historique. Que souhaitez-vous savoir ?",
		Suggestions: []string{SuggestOrderStatus, SuggestPaymentDue, SuggestDelivery, SuggestHistory},
	}
}

// Unknown is the reply for messages no rule recognises.
func (c *Composer) Unknown() Reply {
	return Reply{
		Type:        TypeError,
		Text:        "🤔 Désolé, je n'ai pas compris votre question. Voici quelques exemples de ce que vous pouvez me demander :",
		Suggestions: []string{exampleOrderStatus, SuggestPaymentDue, SuggestDelivery, SuggestHistory},
		Payload:     ErrorPayload{Error: ErrorCodeUnrecognized},
	}
}

func (c *Composer) writeOrderHeader(b *strings.Builder, glyph string, order orders.OrderView) {
	fmt.Fprintf(b, "%s Commande #%s\n", glyph, order.OrderNumber)
	fmt.Fprintf(b, "Client : %s\n", order.Customer.Name)
	fmt.Fprintf(b, "Agence : %s\n", order.AgencyName)
	fmt.Fprintf(b, "Date : %s\n", c.date(order.CreatedAt))
}

func notFoundText(orderNumber string) string {
	if orderNumber != "" {
		return fmt.Sprintf("❌ Je n'ai trouvé aucune commande portant le numéro #%s. Vérifiez le numéro ou consultez votre historique.", orderNumber)
	}
	return "❌ Je n'ai trouvé aucune commande correspondant à votre demande."
}
