package fulfill

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultPaceDelay      = 3 * time.Second
	defaultCodeAttempts   = 10
	defaultCodeRetryDelay = 3 * time.Second
)

var errNoCodes = errors.New("marketplace returned no login codes")

// OutcomeKind discriminates PurchaseOutcome.
type OutcomeKind int

const (
	// OutcomeHardFailure is an unclassified failure; iteration stops.
	OutcomeHardFailure OutcomeKind = iota
	// OutcomeSuccess means the item was bought and delivered.
	OutcomeSuccess
	// OutcomeSoftFailure means this listing is unusable; the next one may be tried.
	OutcomeSoftFailure
	// OutcomeFundsExhausted means no purchase can succeed until the balance is topped up.
	OutcomeFundsExhausted
)

// String returns a stable name for logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSoftFailure:
		return "soft_failure"
	case OutcomeFundsExhausted:
		return "funds_exhausted"
	default:
		return "hard_failure"
	}
}

// PurchaseOutcome is the classified result of one purchase attempt.
type PurchaseOutcome struct {
	Kind   OutcomeKind
	Item   DeliveredItem
	Reason string
}

// AcquireStatus is the terminal state of an acquisition.
type AcquireStatus int

const (
	// AcquireExhausted means no usable candidate was found.
	AcquireExhausted AcquireStatus = iota
	// AcquireDelivered means a credential was obtained.
	AcquireDelivered
	// AcquireFundsExhausted means the marketplace balance ran out.
	AcquireFundsExhausted
)

// String returns a stable name for logs.
func (s AcquireStatus) String() string {
	switch s {
	case AcquireDelivered:
		return "delivered"
	case AcquireFundsExhausted:
		return "funds_exhausted"
	default:
		return "exhausted"
	}
}

// Acquisition summarizes an acquisition run.
type Acquisition struct {
	Status     AcquireStatus
	Item       DeliveredItem
	Candidate  Candidate
	Candidates int
	Attempts   int
	Reason     string
}

// AcquirerConfig controls pacing, retries and classification.
type AcquirerConfig struct {
	// PaceDelay is slept before every search and purchase call.
	PaceDelay time.Duration
	// CodeAttempts caps login-code fetch attempts.
	CodeAttempts int
	// CodeRetryDelay is multiplied by the attempt number between code fetches.
	CodeRetryDelay time.Duration
	Classifier     ErrorClassifier
	Sleeper        Sleeper
	Logger         Logger
	Metrics        Metrics
}

func (c AcquirerConfig) withDefaults() AcquirerConfig {
	if c.PaceDelay < 0 {
		c.PaceDelay = 0
	}
	if c.CodeAttempts <= 0 {
		c.CodeAttempts = defaultCodeAttempts
	}
	if c.CodeRetryDelay < 0 {
		c.CodeRetryDelay = 0
	}
	if c.Classifier == nil {
		c.Classifier = Classify
	}
	if c.Sleeper == nil {
		c.Sleeper = sleepContext
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}

	return c
}

// DefaultAcquirerConfig returns production pacing and retry settings.
func DefaultAcquirerConfig() AcquirerConfig {
	return AcquirerConfig{
		PaceDelay:      defaultPaceDelay,
		CodeAttempts:   defaultCodeAttempts,
		CodeRetryDelay: defaultCodeRetryDelay,
	}
}

// Acquirer runs the search-and-purchase protocol against a Marketplace.
type Acquirer struct {
	market   Marketplace
	notifier Notifier
	cfg      AcquirerConfig
}

// NewAcquirer constructs an Acquirer. A zero PaceDelay or CodeRetryDelay disables waiting.
func NewAcquirer(market Marketplace, notifier Notifier, cfg AcquirerConfig) *Acquirer {
	if market == nil {
		panic("fulfill: nil Marketplace")
	}
	if notifier == nil {
		panic("fulfill: nil Notifier")
	}

	return &Acquirer{
		market:   market,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
	}
}

// Acquire searches for candidates matching target and buys the first usable one.
func (a *Acquirer) Acquire(ctx context.Context, target TargetSpec) Acquisition {
	candidates := a.Search(ctx, target)
	if len(candidates) == 0 {
		return Acquisition{Status: AcquireExhausted, Reason: "no candidates available"}
	}

	return a.TryPurchaseInOrder(ctx, candidates)
}

// Search returns candidates in the marketplace's price-ascending order.
// Search failures are logged and reported as an empty result.
func (a *Acquirer) Search(ctx context.Context, target TargetSpec) []Candidate {
	if err := a.pace(ctx); err != nil {
		a.cfg.Logger.Warn("fulfill search aborted", "region", target.Region, "err", err)

		return nil
	}

	candidates, err := a.market.Search(ctx, SearchQuery{
		Region:   target.Region,
		MinPrice: target.MinPrice,
		MaxPrice: target.MaxPrice,
		Origins:  target.Origins,
	})
	if err != nil {
		a.cfg.Logger.Error("fulfill search failed", "region", target.Region, "err", err)

		return nil
	}
	a.cfg.Logger.Info("fulfill search done", "region", target.Region, "candidates", len(candidates))

	return candidates
}

// Purchase buys a single candidate and classifies the result.
func (a *Acquirer) Purchase(ctx context.Context, candidate Candidate) PurchaseOutcome {
	outcome := a.purchase(ctx, candidate)
	a.cfg.Metrics.AddPurchaseOutcome(outcome.Kind)

	return outcome
}

func (a *Acquirer) purchase(ctx context.Context, candidate Candidate) PurchaseOutcome {
	if err := a.pace(ctx); err != nil {
		return PurchaseOutcome{Kind: OutcomeHardFailure, Reason: err.Error()}
	}

	item, err := a.market.Buy(ctx, candidate.ItemID)
	if err == nil {
		if item.ItemID == 0 {
			item.ItemID = candidate.ItemID
		}
		if item.Cost.IsZero() {
			item.Cost = candidate.Price
		}

		return PurchaseOutcome{Kind: OutcomeSuccess, Item: item}
	}

	reason := FailureReason(err)
	switch a.cfg.Classifier(reason) {
	case ErrorFundsExhausted:
		return PurchaseOutcome{Kind: OutcomeFundsExhausted, Reason: reason}
	case ErrorIgnorable:
		return PurchaseOutcome{Kind: OutcomeSoftFailure, Reason: reason}
	default:
		return PurchaseOutcome{Kind: OutcomeHardFailure, Reason: reason}
	}
}

// TryPurchaseInOrder buys candidates in the given order until one succeeds.
// Funds exhaustion aborts immediately and alerts operators once; an unclassified
// failure stops iteration.
func (a *Acquirer) TryPurchaseInOrder(ctx context.Context, candidates []Candidate) Acquisition {
	result := Acquisition{Status: AcquireExhausted, Candidates: len(candidates)}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			result.Reason = err.Error()

			return result
		}

		a.cfg.Logger.Info("fulfill purchase attempt", "item_id", candidate.ItemID, "price", candidate.Price.String())
		result.Attempts++
		outcome := a.Purchase(ctx, candidate)

		switch outcome.Kind {
		case OutcomeSuccess:
			result.Status = AcquireDelivered
			result.Item = outcome.Item
			result.Candidate = candidate
			result.Reason = ""

			return result
		case OutcomeFundsExhausted:
			a.cfg.Logger.Error("fulfill marketplace balance exhausted", "item_id", candidate.ItemID, "reason", outcome.Reason)
			a.alertFunds(ctx, candidate)
			result.Status = AcquireFundsExhausted
			result.Candidate = candidate
			result.Reason = outcome.Reason

			return result
		case OutcomeSoftFailure:
			a.cfg.Logger.Info("fulfill purchase skipped", "item_id", candidate.ItemID, "reason", outcome.Reason)
			result.Reason = outcome.Reason

			continue
		default:
			a.cfg.Logger.Error("fulfill purchase failed", "item_id", candidate.ItemID, "reason", outcome.Reason)
			result.Candidate = candidate
			result.Reason = outcome.Reason

			return result
		}
	}

	return result
}

// FetchCode returns the newest login code for itemID, retrying with linear backoff on
// transient rejections (see MarketError.Transient), transport or decode failures and
// empty code lists.
func (a *Acquirer) FetchCode(ctx context.Context, itemID int64) (string, error) {
	var lastErr error
	for attempt := 0; attempt < a.cfg.CodeAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * a.cfg.CodeRetryDelay
			if err := a.cfg.Sleeper(ctx, delay); err != nil {
				return "", err
			}
			a.cfg.Logger.Info("fulfill code fetch retry", "item_id", itemID, "attempt", attempt+1, "max", a.cfg.CodeAttempts)
		}

		codes, err := a.market.LoginCodes(ctx, itemID)
		if err == nil {
			if len(codes) > 0 && codes[0].Code != "" {
				return codes[0].Code, nil
			}
			lastErr = errNoCodes

			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		var marketErr *MarketError
		if errors.As(err, &marketErr) && !marketErr.Transient() {
			a.cfg.Logger.Warn("fulfill code fetch rejected", "item_id", itemID, "err", err)

			return "", fmt.Errorf("%w: %w", ErrCodeUnavailable, err)
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrCodeUnavailable, a.cfg.CodeAttempts, lastErr)
}

func (a *Acquirer) alertFunds(ctx context.Context, candidate Candidate) {
	alert := Alert{Text: fmt.Sprintf(
		"Marketplace balance is too low to buy item %d at %s. Please top up the balance!",
		candidate.ItemID,
		candidate.Price.String(),
	)}
	if err := a.notifier.NotifyOperators(ctx, alert); err != nil {
		a.cfg.Logger.Error("fulfill operator alert failed", "err", err)
	}
}

func (a *Acquirer) pace(ctx context.Context) error {
	return a.cfg.Sleeper(ctx, a.cfg.PaceDelay)
}
