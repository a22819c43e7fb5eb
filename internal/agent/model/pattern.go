package model

// PatternTag labels a recognised phrasing that can be routed without the
// text-reasoning classifier.
type PatternTag string

const (
	PatternOrderByProduct   PatternTag = "order_by_product"
	PatternOrderByID        PatternTag = "order_by_id"
	PatternUserOrders       PatternTag = "user_orders"
	PatternRecentOrders     PatternTag = "recent_orders"
	PatternTrackShipment    PatternTag = "track_shipment"
	PatternShipmentByOrder  PatternTag = "shipment_by_order"
	PatternUserTransactions PatternTag = "user_transactions"
	PatternRefundStatus     PatternTag = "refund_status"
	PatternUserTickets      PatternTag = "user_tickets"
	PatternTicketByOrder    PatternTag = "ticket_by_order"
	PatternWalletBalance    PatternTag = "wallet_balance"
	PatternUnknown          PatternTag = "unknown"
)

// Intents produced by routing.
const (
	IntentOrderInquiry     = "order_inquiry"
	IntentDeliveryTracking = "delivery_tracking"
	IntentRefundRequest    = "refund_request"
	IntentPaymentHistory   = "payment_history"
	IntentTicketStatus     = "ticket_status"
	IntentMulti            = "multi_intent"
	IntentGeneral          = "general_inquiry"
)

var patternServices = map[PatternTag][]ServiceName{
	PatternOrderByProduct:   {ServiceOrder},
	PatternOrderByID:        {ServiceOrder},
	PatternUserOrders:       {ServiceOrder},
	PatternRecentOrders:     {ServiceOrder},
	PatternTrackShipment:    {ServiceOrder, ServiceLogistics},
	PatternShipmentByOrder:  {ServiceOrder, ServiceLogistics},
	PatternUserTransactions: {ServicePayment},
	PatternRefundStatus:     {ServiceOrder, ServicePayment},
	PatternUserTickets:      {ServiceSupport},
	PatternTicketByOrder:    {ServiceOrder, ServiceSupport},
	PatternWalletBalance:    {ServicePayment},
}

var patternIntents = map[PatternTag]string{
	PatternOrderByProduct:   IntentOrderInquiry,
	PatternOrderByID:        IntentOrderInquiry,
	PatternUserOrders:       IntentOrderInquiry,
	PatternRecentOrders:     IntentOrderInquiry,
	PatternTrackShipment:    IntentDeliveryTracking,
	PatternShipmentByOrder:  IntentDeliveryTracking,
	PatternUserTransactions: IntentPaymentHistory,
	PatternRefundStatus:     IntentRefundRequest,
	PatternUserTickets:      IntentTicketStatus,
	PatternTicketByOrder:    IntentTicketStatus,
	PatternWalletBalance:    IntentPaymentHistory,
}

// Services returns the services a pattern routes to; unknown patterns go to
// the order service.
func (p PatternTag) Services() []ServiceName {
	if s, ok := patternServices[p]; ok {
		out := make([]ServiceName, len(s))
		copy(out, s)
		return out
	}
	return []ServiceName{ServiceOrder}
}

// Intent returns the intent label for a pattern.
func (p PatternTag) Intent() string {
	if i, ok := patternIntents[p]; ok {
		return i
	}
	return IntentGeneral
}
