package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"water-auction/internal/auth"
	"water-auction/internal/config"
	"water-auction/internal/models"
	"water-auction/internal/repository"
	"water-auction/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Participant{},
		&models.ParticipantResponse{},
		&models.Bid{},
		&models.AuctionRound{},
		&models.ParticipantRoundResult{},
	))
	return db
}

// newTestRouter wires the same routes as main. Session tokens are issued when
// requireToken is set, and the scoped routes then sit behind the middleware.
func newTestRouter(t *testing.T, totalRounds int, requireToken bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.AuctionConfig{
		TotalRounds:          totalRounds,
		RequiredParticipants: 4,
		TierBoundary:         10,
		RandomSeed:           1,
	}
	repo := repository.NewRepository(newTestDB(t))
	participantService := services.NewParticipantService(repo, cfg)
	auctionService, err := services.NewAuctionService(repo, services.NewClearingEngine(cfg.TierBoundary), services.NewResultCache(), cfg)
	require.NoError(t, err)

	participantHandler := NewParticipantHandler(participantService, requireToken)
	auctionHandler := NewAuctionHandler(auctionService)

	router := gin.New()
	router.POST("/register", participantHandler.Register)
	scoped := router.Group("/")
	if requireToken {
		scoped.Use(auth.SessionMiddleware())
	}
	{
		scoped.POST("/submit_description", participantHandler.SubmitDescription)
		scoped.GET("/participant_info", participantHandler.GetParticipantInfo)
		scoped.POST("/bid_submit", auctionHandler.SubmitBids)
		scoped.GET("/round_result", auctionHandler.RoundResult)
		scoped.GET("/final_tokens", auctionHandler.FinalTokens)
	}
	router.GET("/rounds", auctionHandler.ListRounds)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func register(t *testing.T, router *gin.Engine, first, last string) map[string]any {
	t.Helper()
	code, body := do(t, router, http.MethodPost, "/register", gin.H{"firstName": first, "lastName": last}, "")
	require.Equal(t, http.StatusOK, code)
	return body
}

// registerAll fills the four slots and returns the participant ids in
// registration order: bidder1, bidder2, seller1, seller2.
func registerAll(t *testing.T, router *gin.Engine) []string {
	t.Helper()
	names := [][2]string{{"Alice", "Ahn"}, {"Bo", "Berg"}, {"Cleo", "Cruz"}, {"Dev", "Dietz"}}
	ids := make([]string, 0, len(names))
	for _, n := range names {
		body := register(t, router, n[0], n[1])
		ids = append(ids, body["participantId"].(string))
	}
	return ids
}

func bidBody(pid string, price float64, qty int, side string) gin.H {
	return gin.H{
		"participantId": pid,
		"bids":          []gin.H{{"price": price, "quantity": qty, "type": side}},
	}
}

func TestRegisterEndpoint(t *testing.T) {
	router := newTestRouter(t, 8, false)

	body := register(t, router, "Alice", "Ahn")
	require.Equal(t, "Registration successful!", body["message"])
	require.NotEmpty(t, body["participantId"])
	require.Equal(t, "bidder1", body["role"])
	require.Equal(t, float64(100), body["initial_money"])
	require.Equal(t, float64(0), body["water"])
	require.Equal(t, float64(8), body["marginal_value_first"])
	require.Equal(t, float64(6), body["marginal_value_second"])
	require.NotContains(t, body, "session_token")

	code, body := do(t, router, http.MethodPost, "/register", gin.H{"firstName": "", "lastName": "Berg"}, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body, "error")

	register(t, router, "Bo", "Berg")
	register(t, router, "Cleo", "Cruz")
	register(t, router, "Dev", "Dietz")
	code, body = do(t, router, http.MethodPost, "/register", gin.H{"firstName": "Eve", "lastName": "Ekdal"}, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["error"], "maximum number of participants")
}

func TestParticipantInfoEndpoint(t *testing.T) {
	router := newTestRouter(t, 8, false)
	pid := register(t, router, "Alice", "Ahn")["participantId"].(string)

	code, body := do(t, router, http.MethodGet, "/participant_info?participantId="+pid, nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(100), body["initial_money"])
	require.Equal(t, float64(8), body["marginal_value_first"])
	require.Contains(t, body["profit_function"], "Uniform Price")
	require.Contains(t, body["auction_rule"], "uniform price")

	code, _ = do(t, router, http.MethodGet, "/participant_info", nil, "")
	require.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, router, http.MethodGet, "/participant_info?participantId="+uuid.New().String(), nil, "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Participant not found", body["error"])
}

func TestSubmitDescriptionEndpoint(t *testing.T) {
	router := newTestRouter(t, 8, false)
	pid := register(t, router, "Alice", "Ahn")["participantId"].(string)

	code, body := do(t, router, http.MethodPost, "/submit_description", gin.H{
		"participantId": pid,
		"answer1":       "maximize profit",
		"answer2":       "bid below value",
	}, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Description submitted successfully!", body["message"])

	code, body = do(t, router, http.MethodPost, "/submit_description", gin.H{"answer1": "x"}, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Participant ID is required", body["error"])

	code, _ = do(t, router, http.MethodPost, "/submit_description", gin.H{
		"participantId": uuid.New().String(),
		"answer1":       "x",
	}, "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestBidSubmitFlow(t *testing.T) {
	router := newTestRouter(t, 8, false)
	ids := registerAll(t, router)

	// Three of four schedules in: the round stays open.
	code, body := do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[0], 8, 5, models.SideBuy), "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body["message"], "Waiting for other participants")
	require.Equal(t, float64(1), body["round_number"])

	code, body = do(t, router, http.MethodGet, fmt.Sprintf("/round_result?participantId=%s&roundNumber=1", ids[0]), nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, body)

	do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[1], 10, 5, models.SideBuy), "")
	do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[2], 4, 5, models.SideSell), "")

	// The last schedule clears the round and the result rides on the response.
	code, body = do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[3], 8, 5, models.SideSell), "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Round processed successfully.", body["message"])

	roundInfo := body["round_info"].(map[string]any)
	require.Equal(t, float64(1), roundInfo["round_number"])
	require.Equal(t, float64(8), roundInfo["uniform_price"])
	require.Equal(t, float64(10), roundInfo["total_quantity"])

	ownResult := body["participant_result"].(map[string]any)
	require.Equal(t, float64(5), ownResult["executed_quantity"])
	require.Equal(t, float64(10), ownResult["profit"])

	// Polling now returns the flattened result for any participant.
	code, body = do(t, router, http.MethodGet, fmt.Sprintf("/round_result?participantId=%s&roundNumber=1", ids[1]), nil, "")
	require.Equal(t, http.StatusOK, code)
	info := body["round_info"].(map[string]any)
	require.Equal(t, float64(8), info["uniform_price"])
	require.Equal(t, float64(5), info["executed_quantity"])
	require.Equal(t, float64(10), info["profit"])

	code, body = do(t, router, http.MethodGet, "/final_tokens?participantId="+ids[1], nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, ids[1], body["participantId"])
	require.Equal(t, float64(10), body["total_tokens"])

	code, body = do(t, router, http.MethodGet, "/rounds", nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["rounds"], 1)
	require.Equal(t, float64(2), body["current_round"])
	require.Equal(t, false, body["complete"])
}

func TestBidSubmitFinalRound(t *testing.T) {
	router := newTestRouter(t, 1, false)
	ids := registerAll(t, router)

	do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[0], 10, 5, models.SideBuy), "")
	do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[1], 6, 5, models.SideBuy), "")
	do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[2], 4, 5, models.SideSell), "")
	code, body := do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[3], 8, 5, models.SideSell), "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Auction completed. This was the final round.", body["message"])

	// Further submissions are acknowledged but refused.
	code, body = do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[0], 10, 5, models.SideBuy), "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Auction completed. No further rounds are allowed.", body["message"])

	code, body = do(t, router, http.MethodGet, "/rounds", nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["complete"])
}

func TestBidSubmitValidation(t *testing.T) {
	router := newTestRouter(t, 8, false)
	ids := registerAll(t, router)

	code, body := do(t, router, http.MethodPost, "/bid_submit", gin.H{"bids": []gin.H{{"price": 5, "quantity": 1, "type": "buy"}}}, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Participant ID and bids are required", body["error"])

	code, body = do(t, router, http.MethodPost, "/bid_submit", gin.H{"participantId": ids[0], "bids": []gin.H{}}, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["error"], "bids are required")

	code, _ = do(t, router, http.MethodPost, "/bid_submit", bidBody(ids[0], 5, 3, "hold"), "")
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, router, http.MethodPost, "/bid_submit", bidBody(uuid.New().String(), 5, 3, models.SideBuy), "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestRoundResultValidation(t *testing.T) {
	router := newTestRouter(t, 8, false)
	pid := register(t, router, "Alice", "Ahn")["participantId"].(string)

	code, body := do(t, router, http.MethodGet, "/round_result?participantId="+pid, nil, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Missing participantId or roundNumber", body["error"])

	code, body = do(t, router, http.MethodGet, fmt.Sprintf("/round_result?participantId=%s&roundNumber=abc", pid), nil, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Invalid roundNumber", body["error"])

	code, _ = do(t, router, http.MethodGet, fmt.Sprintf("/round_result?participantId=%s&roundNumber=1", uuid.New().String()), nil, "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestSessionTokenMode(t *testing.T) {
	auth.InitJWT("test-secret")
	router := newTestRouter(t, 8, true)

	body := register(t, router, "Alice", "Ahn")
	pid := body["participantId"].(string)
	token, ok := body["session_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// Scoped routes reject requests without a bearer token.
	code, _ := do(t, router, http.MethodGet, "/participant_info?participantId="+pid, nil, "")
	require.Equal(t, http.StatusUnauthorized, code)

	code, resp := do(t, router, http.MethodGet, "/participant_info?participantId="+pid, nil, token)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(100), resp["initial_money"])

	// A valid token for a different participant is not accepted.
	other := register(t, router, "Bo", "Berg")
	otherToken := other["session_token"].(string)
	code, resp = do(t, router, http.MethodGet, "/participant_info?participantId="+pid, nil, otherToken)
	require.Equal(t, http.StatusForbidden, code)
	require.Contains(t, resp["error"], "token does not match")
}
