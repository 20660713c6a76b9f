package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	ListingTypeOffer = "offer"
	ListingTypeWant  = "want"
)

const (
	ActivityOneToOne = "1to1"
	ActivityGroup    = "group"
)

const (
	OfferTypeOneTime   = "1time"
	OfferTypeRecurring = "recurring"
)

const (
	LocationTypeMyLocation = "myLocation"
	LocationTypeRemote     = "remote"
)

const (
	ListingStatusActive    = "ACTIVE"
	ListingStatusInactive  = "INACTIVE"
	ListingStatusCompleted = "COMPLETED"
	ListingStatusCancelled = "CANCELLED"
)

const (
	ExchangeStatusPending   = "PENDING"
	ExchangeStatusAccepted  = "ACCEPTED"
	ExchangeStatusCompleted = "COMPLETED"
	ExchangeStatusCancelled = "CANCELLED"
)

// NonTerminalExchangeStatuses are the states in which an exchange still holds credit.
var NonTerminalExchangeStatuses = []string{ExchangeStatusPending, ExchangeStatusAccepted}

const TransactionTypeSpend = "SPEND"

const (
	ReportTargetUser     = "user"
	ReportTargetOffer    = "offer"
	ReportTargetWant     = "want"
	ReportTargetExchange = "exchange"
)

const (
	ReportStatusPending   = "PENDING"
	ReportStatusResolved  = "RESOLVED"
	ReportStatusDismissed = "DISMISSED"
)

var ReportReasons = []string{"SPAM", "INAPPROPRIATE", "HARASSMENT", "FRAUD", "FAKE_PROFILE", "OTHER"}

const (
	UserActionBan  = "ban_user"
	UserActionWarn = "warn_user"
)

// Values reported back in a resolve response.
const (
	ActionContentRemoved = "content_removed"
	ActionUserBanned     = "user_banned"
	ActionUserWarned     = "user_warned"
	ActionDismissed      = "dismissed"
)

const (
	NotifExchangeRequested = "EXCHANGE_REQUESTED"
	NotifExchangeAccepted  = "EXCHANGE_ACCEPTED"
	NotifExchangeRejected  = "EXCHANGE_REJECTED"
	NotifExchangeCancelled = "EXCHANGE_CANCELLED"
	NotifExchangeConfirmed = "EXCHANGE_CONFIRMED"
	NotifExchangeCompleted = "EXCHANGE_COMPLETED"
	NotifDateProposed      = "DATE_PROPOSED"
	NotifRatingReceived    = "RATING_RECEIVED"
	NotifModeration        = "MODERATION"
	NotifWarning           = "WARNING"
	NotifBanned            = "BANNED"
)
