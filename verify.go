package fulfill

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"
	"sort"
	"strings"
)

var codeRequestPattern = regexp.MustCompile(`(?i)^cd\s+(\d+)$`)

// CodeFetcher fetches the newest login code for a delivered item.
type CodeFetcher interface {
	FetchCode(ctx context.Context, itemID int64) (string, error)
}

// CodeHandlerDeps groups the collaborators of a CodeHandler. History and Logger are optional.
type CodeHandlerDeps struct {
	Settings  SettingsStore
	Recorder  *Recorder
	Fetcher   CodeFetcher
	History   OrderHistory
	Messenger Messenger
	Notifier  Notifier
	Logger    Logger
}

// CodeHandler answers "cd" chat commands with a buyer's phones or a fresh login code.
type CodeHandler struct {
	settings  SettingsStore
	recorder  *Recorder
	fetcher   CodeFetcher
	history   OrderHistory
	messenger Messenger
	notifier  Notifier
	logger    Logger
}

type phoneResolution struct {
	orderID string
	itemID  int64
}

// NewCodeHandler constructs a CodeHandler.
func NewCodeHandler(deps CodeHandlerDeps) *CodeHandler {
	switch {
	case deps.Settings == nil:
		panic("fulfill: nil SettingsStore")
	case deps.Recorder == nil:
		panic("fulfill: nil Recorder")
	case deps.Fetcher == nil:
		panic("fulfill: nil CodeFetcher")
	case deps.Messenger == nil:
		panic("fulfill: nil Messenger")
	case deps.Notifier == nil:
		panic("fulfill: nil Notifier")
	}
	logger := deps.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	return &CodeHandler{
		settings:  deps.Settings,
		recorder:  deps.Recorder,
		fetcher:   deps.Fetcher,
		history:   deps.History,
		messenger: deps.Messenger,
		notifier:  deps.Notifier,
		logger:    logger,
	}
}

// HandleMessage reacts to "cd" and "cd <phone>". Any other text is ignored.
func (h *CodeHandler) HandleMessage(ctx context.Context, msg ChatMessage) error {
	text := strings.TrimSpace(msg.Text)
	if strings.EqualFold(text, "cd") {
		return h.guard(ctx, msg, "", func() error {
			return h.listPhones(ctx, msg)
		})
	}

	match := codeRequestPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	phone := match[1]

	return h.guard(ctx, msg, phone, func() error {
		return h.requestCode(ctx, msg, phone)
	})
}

// guard turns errors and panics into an apology for the buyer and an operator alert.
func (h *CodeHandler) guard(ctx context.Context, msg ChatMessage, phone string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("fulfill code request panic", "buyer", msg.Sender, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
		if err != nil {
			h.apologize(ctx, msg, phone, err)
		}
	}()

	return fn()
}

func (h *CodeHandler) listPhones(ctx context.Context, msg ChatMessage) error {
	owned, err := h.recorder.PhonesForBuyer(ctx, msg.Sender)
	if err != nil {
		return err
	}
	phones := make(map[string]struct{}, len(owned))
	for _, phone := range owned {
		phones[phone] = struct{}{}
	}

	for _, order := range h.historyOf(ctx, msg.Sender) {
		if order.Phone == "" {
			continue
		}
		owner, found, err := h.recorder.PhoneOwner(ctx, order.Phone)
		if err != nil {
			return err
		}
		if found && owner != msg.Sender {
			continue
		}
		phones[order.Phone] = struct{}{}
	}

	if len(phones) == 0 {
		h.reply(ctx, msg, "You have no phone numbers available. Purchase a Telegram account first.")

		return nil
	}

	sorted := make([]string, 0, len(phones))
	for phone := range phones {
		sorted = append(sorted, phone)
	}
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("Your phone numbers:\n\n")
	for _, phone := range sorted {
		fmt.Fprintf(&b, "• %s\n", phone)
	}
	b.WriteString("\nTo receive a code send: cd <phone>")
	h.reply(ctx, msg, b.String())

	return nil
}

func (h *CodeHandler) requestCode(ctx context.Context, msg ChatMessage, phone string) error {
	h.logger.Info("fulfill code requested", "buyer", msg.Sender, "phone", phone)

	owner, found, err := h.recorder.PhoneOwner(ctx, phone)
	if err != nil {
		return err
	}
	if found && owner != msg.Sender {
		h.logger.Warn("fulfill code request for foreign phone", "buyer", msg.Sender, "phone", phone)
		h.reply(ctx, msg, fmt.Sprintf("Phone %s does not belong to you. You can only receive codes for your own numbers.", phone))

		return nil
	}

	resolved, known, err := h.resolve(ctx, msg.Sender, phone)
	if err != nil {
		return err
	}
	if !known {
		h.reply(ctx, msg, fmt.Sprintf("Phone %s was not found among your orders.", phone))

		return nil
	}
	if resolved.itemID == 0 {
		h.reply(ctx, msg, fmt.Sprintf("A code cannot be fetched for %s automatically. An operator will contact you shortly.", phone))
		h.alert(ctx, resolved.orderID, fmt.Sprintf("Code requested for phone %s but no item id is known.", phone))

		return nil
	}

	h.reply(ctx, msg, "Code request sent. Please wait...")

	code, err := h.fetcher.FetchCode(ctx, resolved.itemID)
	if err != nil {
		h.logger.Warn("fulfill code unavailable", "phone", phone, "item_id", resolved.itemID, "err", err)
		h.reply(ctx, msg, fmt.Sprintf("Could not get a code for %s. It may arrive in a few minutes, please try again later.", phone))
		h.alert(ctx, resolved.orderID, fmt.Sprintf("Could not fetch a code for phone %s, item %d: %v", phone, resolved.itemID, err))

		return nil
	}

	settings, err := h.settings.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings = settings.WithDefaults()

	h.reply(ctx, msg, RenderTemplate(settings.CodeTemplate, map[string]string{
		"code":       code,
		"order_link": settings.OrderLink(resolved.orderID),
		"order_id":   resolved.orderID,
	}))

	if err := h.recorder.BindPhone(ctx, phone, msg.Sender); err != nil {
		h.logger.Error("fulfill phone bind failed", "phone", phone, "buyer", msg.Sender, "err", err)
	}
	h.logger.Info("fulfill code delivered", "buyer", msg.Sender, "phone", phone, "order_id", resolved.orderID)

	return nil
}

// resolve finds the order and item behind phone, checking recorded deliveries
// before the event source's order history.
func (h *CodeHandler) resolve(ctx context.Context, buyer, phone string) (phoneResolution, bool, error) {
	record, found, err := h.recorder.FindByPhone(ctx, buyer, phone)
	if err != nil {
		return phoneResolution{}, false, err
	}
	if found {
		return phoneResolution{orderID: record.OrderID, itemID: record.ItemID}, true, nil
	}

	for _, order := range h.historyOf(ctx, buyer) {
		if order.Phone == phone {
			return phoneResolution{orderID: order.OrderID, itemID: order.ItemID}, true, nil
		}
	}

	return phoneResolution{}, false, nil
}

func (h *CodeHandler) historyOf(ctx context.Context, buyer string) []HistoricOrder {
	if h.history == nil {
		return nil
	}
	orders, err := h.history.DeliveredOrders(ctx, buyer)
	if err != nil {
		h.logger.Warn("fulfill order history unavailable", "buyer", buyer, "err", err)

		return nil
	}

	return orders
}

func (h *CodeHandler) reply(ctx context.Context, msg ChatMessage, text string) {
	out := Message{ChatID: msg.ChatID, Buyer: msg.Sender, Text: text}
	if err := h.messenger.SendMessage(ctx, out); err != nil {
		h.logger.Error("fulfill chat reply failed", "buyer", msg.Sender, "err", err)
	}
}

func (h *CodeHandler) alert(ctx context.Context, orderID, text string) {
	if err := h.notifier.NotifyOperators(ctx, Alert{Text: text, OrderID: orderID}); err != nil {
		h.logger.Error("fulfill operator alert failed", "err", err)
	}
}

func (h *CodeHandler) apologize(ctx context.Context, msg ChatMessage, phone string, cause error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("fulfill code apology failed", "buyer", msg.Sender, "panic", r)
		}
	}()
	h.logger.Error("fulfill code request failed", "buyer", msg.Sender, "phone", phone, "err", cause)
	h.reply(ctx, msg, "A technical error occurred while fetching your code. Please try again later or contact an operator.")
	if phone == "" {
		phone = "unknown"
	}
	h.alert(ctx, "", fmt.Sprintf("Code request from %s failed.\nPhone: %s\nError: %v", msg.Sender, phone, cause))
}
