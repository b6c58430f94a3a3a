package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/myaibookkeeper/bookkeeper/internal/billing"
	"github.com/myaibookkeeper/bookkeeper/internal/config"
	"github.com/myaibookkeeper/bookkeeper/internal/database"
	"github.com/myaibookkeeper/bookkeeper/internal/identity"
	"github.com/myaibookkeeper/bookkeeper/internal/models"
	"github.com/myaibookkeeper/bookkeeper/internal/storage"
)

// fakeIdentity is an in-memory identity provider
type fakeIdentity struct {
	users   map[string]*identity.ProviderUser
	deleted []string
}

func (f *fakeIdentity) GetUser(ctx context.Context, userID string) (*identity.ProviderUser, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeIdentity) DeleteUser(ctx context.Context, userID string) error {
	if _, ok := f.users[userID]; !ok {
		return identity.ErrUserNotFound
	}
	delete(f.users, userID)
	f.deleted = append(f.deleted, userID)
	return nil
}

// fakeBilling is an in-memory billing provider keyed by subscription ID
type fakeBilling struct {
	subs       map[string]*models.Subscription
	byEmail    map[string][]string
	cancelErr  error
	canceledAt []string
}

func (f *fakeBilling) CountActiveSubscriptionsByEmail(ctx context.Context, email string) (int, []models.Subscription, error) {
	var active []models.Subscription
	for _, id := range f.byEmail[email] {
		if sub, ok := f.subs[id]; ok && sub.IsActive() {
			active = append(active, *sub)
		}
	}
	return len(active), active, nil
}

func (f *fakeBilling) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeBilling) CancelNow(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	now := time.Now().Unix()
	sub.Status = models.SubscriptionCanceled
	sub.CanceledAt = &now
	f.canceledAt = append(f.canceledAt, subscriptionID)
	copied := *sub
	return &copied, nil
}

func (f *fakeBilling) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	sub.CancelAtPeriodEnd = true
	copied := *sub
	return &copied, nil
}

type fakeDocs struct {
	purged   []string
	uploaded []string
}

func (f *fakeDocs) UploadDocument(ctx context.Context, userID, filename string, reader io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	key := "users/" + userID + "/documents/" + filename
	f.uploaded = append(f.uploaded, key)
	return &storage.UploadResult{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeDocs) PurgeUserDocuments(ctx context.Context, userID string) (int, error) {
	f.purged = append(f.purged, userID)
	return 2, nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendDeletionConfirmation(toEmail, firstName, deletedAt string, exported bool) error {
	f.sent = append(f.sent, toEmail)
	return nil
}

// ApiTestSuite spins up the full router against fakes and a scratch SQLite
// database.
type ApiTestSuite struct {
	suite.Suite
	api      *Api
	identity *fakeIdentity
	billing  *fakeBilling
	docs     *fakeDocs
	mailer   *fakeMailer
	cfg      *config.Config
}

func (s *ApiTestSuite) SetupTest() {
	s.cfg = &config.Config{}
	s.cfg.APIPort = 8081
	s.cfg.Database.Type = "sqlite"
	s.cfg.Database.Path = filepath.Join(s.T().TempDir(), "test_api.db")
	s.cfg.Database.MaxRetries = 1
	s.cfg.Database.RetryDelay = 1
	s.cfg.Identity.TokenSecret = "test-secret"
	s.cfg.Billing.WebhookSecret = "whsec_test"
	s.cfg.InternalAPIKey = "internal-test-key"

	assert.NoError(s.T(), database.Init(s.cfg))

	s.identity = &fakeIdentity{users: map[string]*identity.ProviderUser{
		"user_1": {
			ID:        "user_1",
			Email:     "jane@example.com",
			FirstName: "Jane",
			LastName:  "Doe",
			CreatedAt: 1700000000000,
		},
	}}
	s.billing = &fakeBilling{
		subs: map[string]*models.Subscription{
			"sub_1": {
				ID:               "sub_1",
				Status:           models.SubscriptionActive,
				CurrentPeriodEnd: time.Now().Add(720 * time.Hour).Unix(),
			},
		},
		byEmail: map[string][]string{"jane@example.com": {"sub_1"}},
	}
	s.docs = &fakeDocs{}
	s.mailer = &fakeMailer{}

	api, err := NewApi(s.cfg, s.identity, s.billing, s.docs, s.mailer)
	assert.NoError(s.T(), err)
	s.api = api
}

func (s *ApiTestSuite) TearDownTest() {
	database.Close()
}

func TestApiTestSuite(t *testing.T) {
	suite.Run(t, new(ApiTestSuite))
}

// request performs an authenticated request against the router
func (s *ApiTestSuite) request(method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		verifier := identity.NewTokenVerifier(s.cfg.Identity.TokenSecret)
		token, err := verifier.SignToken(userID, "jane@example.com", time.Hour)
		assert.NoError(s.T(), err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)
	return rec
}

func (s *ApiTestSuite) decode(rec *httptest.ResponseRecorder, out interface{}) {
	assert.NoError(s.T(), json.NewDecoder(rec.Body).Decode(out))
}

func (s *ApiTestSuite) seedMirror(userID string) {
	user := &models.User{
		ID:         userID,
		Email:      "jane@example.com",
		FirstName:  "Jane",
		LastName:   "Doe",
		Tier:       models.TierPaid,
		QueryCount: 12,
		QueryLimit: 5,
	}
	assert.NoError(s.T(), database.UpsertUser(user))
	assert.NoError(s.T(), database.CreateConversation(&models.Conversation{
		UserID: userID,
		Title:  "Q3 expense review",
	}))
}

func (s *ApiTestSuite) TestHeartbeat() {
	rec := s.request("GET", "/heartbeat", nil, "")
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *ApiTestSuite) TestAccountRoutesRequireAuth() {
	rec := s.request("GET", "/api/account/delete", nil, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	rec = s.request("POST", "/api/account/delete", models.DeleteAccountRequest{ConfirmDeletion: true}, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *ApiTestSuite) TestGetAccountInfo() {
	rec := s.request("GET", "/api/account/delete", nil, "user_1")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var info models.AccountInfo
	s.decode(rec, &info)
	assert.Equal(s.T(), "jane@example.com", info.User.Email)
	assert.Equal(s.T(), 1, info.ActiveSubscriptions)
	assert.Len(s.T(), info.DeletionInfo.DataTypes, 5)
	assert.Len(s.T(), info.DeletionInfo.Process, 4)
}

func (s *ApiTestSuite) TestDeleteAccountRequiresConfirmation() {
	rec := s.request("POST", "/api/account/delete", models.DeleteAccountRequest{ConfirmDeletion: false}, "user_1")
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	var errResp models.ErrorResponse
	s.decode(rec, &errResp)
	assert.Equal(s.T(), "Account deletion must be confirmed", errResp.Error)
	assert.Empty(s.T(), s.identity.deleted)
}

func (s *ApiTestSuite) TestDeleteAccountWithExport() {
	s.seedMirror("user_1")

	rec := s.request("POST", "/api/account/delete", models.DeleteAccountRequest{
		ConfirmDeletion: true,
		ExportData:      true,
	}, "user_1")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp models.DeleteAccountResponse
	s.decode(rec, &resp)
	assert.True(s.T(), resp.Success)
	assert.Equal(s.T(), "Your account has been permanently deleted. All your data has been removed from our systems.", resp.Message)
	assert.NotEmpty(s.T(), resp.DeletedAt)

	// Export snapshot reflects the pre-purge state
	assert.NotNil(s.T(), resp.ExportData)
	assert.Equal(s.T(), "jane@example.com", resp.ExportData.Email)
	assert.Len(s.T(), resp.ExportData.Conversations, 1)

	// Side effects: subscription canceled, documents purged, identity
	// removed, mail sent, mirror gone.
	assert.Contains(s.T(), s.billing.canceledAt, "sub_1")
	assert.Contains(s.T(), s.docs.purged, "user_1")
	assert.Contains(s.T(), s.identity.deleted, "user_1")
	assert.Contains(s.T(), s.mailer.sent, "jane@example.com")

	user, err := database.GetUserByID("user_1")
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), user)
}

func (s *ApiTestSuite) TestDeleteAccountWithoutExport() {
	s.seedMirror("user_1")

	rec := s.request("POST", "/api/account/delete", models.DeleteAccountRequest{
		ConfirmDeletion: true,
		ExportData:      false,
	}, "user_1")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp models.DeleteAccountResponse
	s.decode(rec, &resp)
	assert.True(s.T(), resp.Success)
	assert.Nil(s.T(), resp.ExportData)
}

func (s *ApiTestSuite) TestDeleteAccountUnknownUser() {
	rec := s.request("POST", "/api/account/delete", models.DeleteAccountRequest{ConfirmDeletion: true}, "ghost")
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)

	var errResp models.ErrorResponse
	s.decode(rec, &errResp)
	assert.Equal(s.T(), "User account not found", errResp.Error)
}

func (s *ApiTestSuite) TestCancelSubscriptionImmediately() {
	rec := s.request("POST", "/api/subscription/cancel", models.CancelSubscriptionRequest{
		SubscriptionID: "sub_1",
	}, "user_1")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp models.CancelSubscriptionResponse
	s.decode(rec, &resp)
	assert.True(s.T(), resp.Success)
	assert.Equal(s.T(), "Your subscription has been canceled immediately. You still have access until the end of your current billing period.", resp.Message)
	assert.Equal(s.T(), models.SubscriptionCanceled, resp.Subscription.Status)
	assert.NotNil(s.T(), resp.Subscription.CanceledAt)

	// Local mirror picked up the provider state
	subs, err := database.GetUserSubscriptions("user_1")
	assert.NoError(s.T(), err)
	assert.Len(s.T(), subs, 1)
	assert.Equal(s.T(), models.SubscriptionCanceled, subs[0].Status)
}

func (s *ApiTestSuite) TestCancelSubscriptionAtPeriodEnd() {
	rec := s.request("POST", "/api/subscription/cancel", models.CancelSubscriptionRequest{
		SubscriptionID: "sub_1",
		CancelAt:       models.CancelAtPeriodEnd,
	}, "user_1")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp models.CancelSubscriptionResponse
	s.decode(rec, &resp)
	assert.Equal(s.T(), "Your subscription will be canceled at the end of your current billing period. You can reactivate it anytime before then.", resp.Message)
	assert.True(s.T(), resp.Subscription.CancelAtPeriodEnd)
	assert.Equal(s.T(), models.SubscriptionActive, resp.Subscription.Status)
}

func (s *ApiTestSuite) TestCancelSubscriptionValidation() {
	rec := s.request("POST", "/api/subscription/cancel", models.CancelSubscriptionRequest{}, "user_1")
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	var errResp models.ErrorResponse
	s.decode(rec, &errResp)
	assert.Equal(s.T(), "Subscription ID is required", errResp.Error)

	rec = s.request("POST", "/api/subscription/cancel", map[string]string{
		"subscriptionId": "sub_1",
		"cancelAt":       "someday",
	}, "user_1")
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	s.decode(rec, &errResp)
	assert.Equal(s.T(), "Invalid cancellation type", errResp.Error)

	rec = s.request("POST", "/api/subscription/cancel", models.CancelSubscriptionRequest{
		SubscriptionID: "sub_404",
	}, "user_1")
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
	s.decode(rec, &errResp)
	assert.Equal(s.T(), "Subscription not found", errResp.Error)
}

func (s *ApiTestSuite) TestCancelSubscriptionProviderErrorSurfaced() {
	s.billing.cancelErr = &billing.ProviderError{Message: "subscription already canceled", Status: 400}

	rec := s.request("POST", "/api/subscription/cancel", models.CancelSubscriptionRequest{
		SubscriptionID: "sub_1",
	}, "user_1")
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	var errResp models.ErrorResponse
	s.decode(rec, &errResp)
	assert.Contains(s.T(), errResp.Error, "subscription already canceled")
}

func (s *ApiTestSuite) TestGetSubscriptionStatus() {
	rec := s.request("GET", "/api/subscription/cancel?subscription_id=sub_1", nil, "user_1")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp struct {
		Subscription models.Subscription `json:"subscription"`
	}
	s.decode(rec, &resp)
	assert.Equal(s.T(), "sub_1", resp.Subscription.ID)

	rec = s.request("GET", "/api/subscription/cancel", nil, "user_1")
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ApiTestSuite) TestGetCurrentUserSeedsMirror() {
	rec := s.request("GET", "/api/user", nil, "user_1")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var user models.User
	s.decode(rec, &user)
	assert.Equal(s.T(), "user_1", user.ID)
	assert.Equal(s.T(), models.TierFree, user.Tier)
	assert.Equal(s.T(), 5, user.QueryLimit)

	stored, err := database.GetUserByID("user_1")
	assert.NoError(s.T(), err)
	assert.NotNil(s.T(), stored)
}

func (s *ApiTestSuite) TestListPopularUses() {
	rec := s.request("GET", "/api/popular-uses?category=tax-planning&difficulty=advanced", nil, "")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var resp struct {
		UseCases []models.UseCase `json:"useCases"`
	}
	s.decode(rec, &resp)
	assert.Len(s.T(), resp.UseCases, 2)
}

func (s *ApiTestSuite) TestUploadAndListDocuments() {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "receipts-q3.csv")
	assert.NoError(s.T(), err)
	_, err = part.Write([]byte("date,amount\n2026-07-01,42.50\n"))
	assert.NoError(s.T(), err)
	assert.NoError(s.T(), writer.Close())

	verifier := identity.NewTokenVerifier(s.cfg.Identity.TokenSecret)
	token, err := verifier.SignToken("user_1", "jane@example.com", time.Hour)
	assert.NoError(s.T(), err)

	req := httptest.NewRequest("POST", "/api/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)

	var doc models.Document
	s.decode(rec, &doc)
	assert.Equal(s.T(), "receipts-q3.csv", doc.Filename)
	assert.Equal(s.T(), "users/user_1/documents/receipts-q3.csv", doc.StorageKey)
	assert.NotZero(s.T(), doc.Size)
	assert.Equal(s.T(), []string{"users/user_1/documents/receipts-q3.csv"}, s.docs.uploaded)

	// Upload is mirrored locally and served back by the list endpoint
	rec = s.request("GET", "/api/documents", nil, "user_1")
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	var resp struct {
		Documents []models.Document `json:"documents"`
	}
	s.decode(rec, &resp)
	assert.Len(s.T(), resp.Documents, 1)
	assert.Equal(s.T(), "receipts-q3.csv", resp.Documents[0].Filename)
}

func (s *ApiTestSuite) TestUploadDocumentWithoutFile() {
	rec := s.request("POST", "/api/documents", map[string]string{"filename": "x"}, "user_1")
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	var errResp models.ErrorResponse
	s.decode(rec, &errResp)
	assert.Equal(s.T(), "No file provided", errResp.Error)
}

func (s *ApiTestSuite) TestGetPopularUse() {
	rec := s.request("GET", "/api/popular-uses/quarterly-tax-planning", nil, "")
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var uc models.UseCase
	s.decode(rec, &uc)
	assert.Equal(s.T(), "quarterly-tax-planning", uc.ID)
	assert.Equal(s.T(), models.CategoryTaxPlanning, uc.Category)

	rec = s.request("GET", "/api/popular-uses/unknown-use", nil, "")
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ApiTestSuite) webhookSign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.Billing.WebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *ApiTestSuite) TestBillingWebhook() {
	s.seedMirror("user_1")

	body, err := json.Marshal(billingEvent{
		Type:   "subscription.deleted",
		UserID: "user_1",
		Subscription: &models.Subscription{
			ID:     "sub_1",
			Status: models.SubscriptionCanceled,
		},
	})
	assert.NoError(s.T(), err)

	req := httptest.NewRequest("POST", "/api/webhook/billing", bytes.NewReader(body))
	req.Header.Set("Webhook-Signature", s.webhookSign(body))
	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	// Canceled subscription drops the mirrored user back to free
	user, err := database.GetUserByID("user_1")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), models.TierFree, user.Tier)
}

func (s *ApiTestSuite) TestBillingWebhookRejectsBadSignature() {
	body := []byte(`{"type":"subscription.updated"}`)
	req := httptest.NewRequest("POST", "/api/webhook/billing", bytes.NewReader(body))
	req.Header.Set("Webhook-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *ApiTestSuite) TestResetUsageGuardedByInternalKey() {
	rec := s.request("POST", "/api/reset-usage", nil, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("POST", "/api/reset-usage", nil)
	req.Header.Set("X-Internal-API-Key", s.cfg.InternalAPIKey)
	recorder := httptest.NewRecorder()
	s.api.Router.ServeHTTP(recorder, req)
	assert.Equal(s.T(), http.StatusOK, recorder.Code)

	var resp struct {
		Success    bool `json:"success"`
		UsersReset int  `json:"usersReset"`
	}
	assert.NoError(s.T(), json.NewDecoder(recorder.Body).Decode(&resp))
	assert.True(s.T(), resp.Success)
}
