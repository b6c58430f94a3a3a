package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

// ConfirmationPhrase is the exact text a user must type before account
// deletion is permitted. Compared byte-for-byte: no trimming, no case
// folding.
const ConfirmationPhrase = "DELETE MY ACCOUNT"

const (
	exportFilePrefix = "my-ai-bookkeeper"
	homeRoute        = "/"
	redirectDelay    = 3 * time.Second
)

// DeletionState tracks where the deletion flow is
type DeletionState int

const (
	StateIdle DeletionState = iota
	StateConfirmPending
	StateSubmitting
	StateSucceeded
)

func (s DeletionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfirmPending:
		return "confirm_pending"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	}
	return "unknown"
}

// Capabilities bundles the injected side-effect dependencies
type Capabilities struct {
	Notifier  Notifier
	Navigator Navigator
	Scheduler Scheduler
	Exports   ExportSink
	Identity  IdentitySignal
}

// Manager drives the account lifecycle flow: it loads the account summary
// once the identity signal resolves, runs subscription cancellations, and
// walks the deletion state machine. All methods are safe for concurrent
// use; the loading flags guarantee at most one in-flight request per
// controller.
type Manager struct {
	client *Client
	caps   Capabilities
	now    func() time.Time

	mu sync.Mutex

	loadAttempted bool
	info          *models.AccountInfo

	subscription  *models.Subscription
	cancelLoading bool

	deletionState    DeletionState
	confirmationText string
	exportRequested  bool
	deleteLoading    bool
}

// NewManager creates a Manager over the given API client and capabilities
func NewManager(client *Client, caps Capabilities) *Manager {
	m := &Manager{
		client:        client,
		caps:          caps,
		now:           time.Now,
		deletionState: StateIdle,
	}
	if m.caps.Scheduler == nil {
		m.caps.Scheduler = TimerScheduler{}
	}
	return m
}

// Load fetches the account summary once the identity signal reports a
// signed-in user. Calling it before the signal resolves is a no-op, so
// callers can invoke it again when the signal transitions to ready. A
// failed fetch is logged and the summary stays empty; there is no retry.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	if m.loadAttempted || m.caps.Identity == nil || !m.caps.Identity.Ready() || m.caps.Identity.User() == nil {
		m.mu.Unlock()
		return
	}
	m.loadAttempted = true
	m.mu.Unlock()

	info, err := m.client.GetAccountInfo(ctx)
	if err != nil {
		log.Printf("[ACCOUNT] Failed to load account info: %v", err)
		return
	}

	m.mu.Lock()
	m.info = info
	m.mu.Unlock()
}

// Summary returns the loaded account summary, or nil when the load has not
// happened or failed.
func (m *Manager) Summary() *models.AccountInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

// ActiveSubscriptions reports the loaded subscription count, degrading to
// zero when no summary is available.
func (m *Manager) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.info == nil {
		return 0
	}
	return m.info.ActiveSubscriptions
}

// DeletionDisclosure returns the data categories that deletion removes,
// empty when no summary is available.
func (m *Manager) DeletionDisclosure() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.info == nil {
		return nil
	}
	return m.info.DeletionInfo.DataTypes
}

// SetSubscription seeds the locally tracked subscription
func (m *Manager) SetSubscription(sub *models.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscription = sub
}

// Subscription returns the locally tracked subscription state
func (m *Manager) Subscription() *models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscription
}

// CancelLoading reports whether a cancellation request is in flight
func (m *Manager) CancelLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelLoading
}

// Cancel terminates the tracked subscription in the given mode. Without a
// known subscription it fails fast with a notification and no network
// call. While a request is in flight further calls are ignored. On success
// the local subscription state is replaced wholesale by the provider's
// returned object; on failure it is left untouched.
func (m *Manager) Cancel(ctx context.Context, mode models.CancelMode) {
	m.mu.Lock()
	if m.cancelLoading {
		m.mu.Unlock()
		return
	}
	if m.subscription == nil || m.subscription.ID == "" {
		m.mu.Unlock()
		m.notifyError("No active subscription found")
		return
	}
	m.cancelLoading = true
	subscriptionID := m.subscription.ID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.cancelLoading = false
		m.mu.Unlock()
	}()

	resp, err := m.client.CancelSubscription(ctx, models.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		CancelAt:       mode,
	})
	if err != nil {
		m.notifyError(messageFrom(err, "Failed to cancel subscription"))
		return
	}

	m.mu.Lock()
	m.subscription = resp.Subscription
	m.mu.Unlock()

	m.notifySuccess(resp.Message)
}

// BeginDeletion opens the confirmation step
func (m *Manager) BeginDeletion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deletionState == StateIdle {
		m.deletionState = StateConfirmPending
	}
}

// AbortDeletion backs out of the confirmation step and clears any typed
// confirmation text so nothing stale carries over to a later attempt.
func (m *Manager) AbortDeletion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deletionState == StateConfirmPending {
		m.deletionState = StateIdle
		m.confirmationText = ""
	}
}

// SetConfirmationText records the user's typed confirmation text
func (m *Manager) SetConfirmationText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmationText = text
}

// ConfirmationText returns the currently typed confirmation text
func (m *Manager) ConfirmationText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmationText
}

// SetExportRequested toggles the pre-deletion data export
func (m *Manager) SetExportRequested(requested bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exportRequested = requested
}

// State returns the deletion flow's current state
func (m *Manager) State() DeletionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletionState
}

// DeleteLoading reports whether a deletion request is in flight
func (m *Manager) DeleteLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLoading
}

// CanSubmit reports whether the delete action is currently reachable: the
// confirmation step is open, the typed text matches the phrase exactly, and
// no request is in flight. The UI disables the delete control whenever this
// is false.
func (m *Manager) CanSubmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletionState == StateConfirmPending &&
		m.confirmationText == ConfirmationPhrase &&
		!m.deleteLoading
}

// SubmitDeletion runs the destructive call. The confirmation step must be
// open and the gate is re-checked here even though the UI disables the
// control, so a mismatched phrase or a skipped step never reaches the
// network. On success the export is saved when
// both requested and returned, and the redirect home is scheduled. On
// failure the flow returns to the confirmation step with the typed text
// intact.
func (m *Manager) SubmitDeletion(ctx context.Context) {
	m.mu.Lock()
	if m.deleteLoading || m.deletionState != StateConfirmPending {
		m.mu.Unlock()
		return
	}
	if m.confirmationText != ConfirmationPhrase {
		m.mu.Unlock()
		m.notifyError(`Please type "DELETE MY ACCOUNT" to confirm`)
		return
	}
	m.deleteLoading = true
	m.deletionState = StateSubmitting
	exportRequested := m.exportRequested
	m.mu.Unlock()

	resp, err := m.client.DeleteAccount(ctx, models.DeleteAccountRequest{
		ConfirmDeletion: true,
		ExportData:      exportRequested,
	})

	m.mu.Lock()
	m.deleteLoading = false
	if err != nil {
		// Back to the confirmation step; the typed text is kept so the
		// user is not forced to retype it.
		m.deletionState = StateConfirmPending
		m.mu.Unlock()
		m.notifyError(messageFrom(err, "Failed to delete account"))
		return
	}
	m.deletionState = StateSucceeded
	m.mu.Unlock()

	if exportRequested && resp.ExportData != nil {
		m.saveExport(resp.ExportData)
	}

	m.notifySuccess("Account deleted successfully. You will be redirected...")

	m.caps.Scheduler.AfterFunc(redirectDelay, func() {
		if m.caps.Navigator != nil {
			m.caps.Navigator.RedirectTo(homeRoute)
		}
	})
}

// saveExport serializes the export payload and hands it to the sink under
// a date-stamped filename. A sink failure does not fail the deletion; it is
// already done server-side.
func (m *Manager) saveExport(export *models.DataExport) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		log.Printf("[ACCOUNT] Failed to serialize export: %v", err)
		return
	}

	filename := fmt.Sprintf("%s-data-export-%s.json", exportFilePrefix, m.now().Format("2006-01-02"))
	if m.caps.Exports == nil {
		log.Printf("[ACCOUNT] No export sink configured; skipping %s", filename)
		return
	}
	if err := m.caps.Exports.Save(filename, data); err != nil {
		log.Printf("[ACCOUNT] Failed to save export %s: %v", filename, err)
	}
}

func (m *Manager) notifySuccess(msg string) {
	if m.caps.Notifier != nil {
		m.caps.Notifier.Success(msg)
	}
}

func (m *Manager) notifyError(msg string) {
	if m.caps.Notifier != nil {
		m.caps.Notifier.Error(msg)
	}
}

// messageFrom surfaces a server-supplied error string verbatim, falling
// back to the given generic message otherwise.
func messageFrom(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
