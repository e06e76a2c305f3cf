package marketapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/smartpay/internal/netconfig"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/catalog"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/chat"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/payment"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/txledger"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/wallet"
)

const agentUnreachableMessage = "Connection error. The agent is momentarily unreachable."

// Dependencies carries the collaborators the HTTP facade exposes.
type Dependencies struct {
	Logger    *zap.Logger
	Connector *wallet.Connector
	Gateway   payment.Gateway
	Completer chat.Completer
	Ledger    *txledger.Ledger
	Network   *netconfig.Loader
}

// Run boots the HTTP facade using the supplied configuration.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	handler := &httpHandler{
		logger:    deps.Logger,
		cfg:       cfg,
		connector: deps.Connector,
		gateway:   deps.Gateway,
		completer: deps.Completer,
		ledger:    deps.Ledger,
		network:   deps.Network,
		sessions:  map[string]*agentSession{},
	}

	deps.Ledger.Load(ctx)
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("marketapi listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			deps.Logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/catalog", handler.handleCatalog)
	api.GET("/config", handler.handleNetworkConfig)
	api.GET("/wallet", handler.handleWallet)
	api.POST("/wallet/connect", handler.handleWalletConnect)
	api.POST("/wallet/disconnect", handler.handleWalletDisconnect)
	api.POST("/checkout", handler.handleCheckout)
	api.POST("/checkout/:id/pay", handler.handlePay)
	api.GET("/transactions", handler.handleTransactions)
	api.GET("/chat/:id/messages", handler.handleChatTranscript)
	api.POST("/chat/:id/messages", handler.handleChatSend)

	return router
}

// agentSession groups the per-purchase state created at checkout. The chat
// session appears only after the payment completes.
type agentSession struct {
	listing catalog.Listing
	payment *payment.Session
	chat    *chat.Session
}

type httpHandler struct {
	logger    *zap.Logger
	cfg       Config
	connector *wallet.Connector
	gateway   payment.Gateway
	completer chat.Completer
	ledger    *txledger.Ledger
	network   *netconfig.Loader

	mutex    sync.Mutex
	sessions map[string]*agentSession
}

func (handler *httpHandler) handleCatalog(ctx *gin.Context) {
	query := ctx.Query("query")
	category := catalog.ParseCategory(ctx.Query("category"))
	filtered := catalog.Filter(catalog.Listings(), query, category)

	listingsPayload := make([]ListingPayload, 0, len(filtered))
	for _, listing := range filtered {
		listingsPayload = append(listingsPayload, listingPayload(listing))
	}
	categories := catalog.Categories()
	categoryNames := make([]string, 0, len(categories))
	for _, name := range categories {
		categoryNames = append(categoryNames, string(name))
	}
	ctx.JSON(http.StatusOK, CatalogEnvelope{Listings: listingsPayload, Categories: categoryNames})
}

func (handler *httpHandler) handleNetworkConfig(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, ConfigEnvelope{Config: handler.network.Load(ctx.Request.Context())})
}

func (handler *httpHandler) handleWallet(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, WalletEnvelope{Wallet: walletPayload(handler.connector.CurrentState())})
}

func (handler *httpHandler) handleWalletConnect(ctx *gin.Context) {
	state, err := handler.connector.Connect(ctx.Request.Context())
	if err != nil {
		handler.logger.Warn("wallet connect failed", zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse("connection_denied", "wallet connection was denied"))
		return
	}
	ctx.JSON(http.StatusOK, WalletEnvelope{Wallet: walletPayload(state)})
}

func (handler *httpHandler) handleWalletDisconnect(ctx *gin.Context) {
	state := handler.connector.Disconnect()
	handler.closeAllSessions()
	ctx.JSON(http.StatusOK, WalletEnvelope{Wallet: walletPayload(state)})
}

func (handler *httpHandler) handleCheckout(ctx *gin.Context) {
	var request checkoutRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	if !handler.connector.CurrentState().Connected {
		ctx.JSON(http.StatusConflict, errorResponse("wallet_not_connected", "connect a wallet before checkout"))
		return
	}
	listing, found := catalog.FindListing(request.ListingID)
	if !found {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_listing", "no such agent listing"))
		return
	}

	networkConfig := handler.network.Load(ctx.Request.Context())
	paymentSession, err := payment.NewSession(listing, handler.gateway,
		payment.WithDecimals(networkConfig.Decimals),
		payment.WithSuccessDelay(handler.cfg.SuccessDelay),
		payment.WithOperationLogger(paymentOperationLogger{logger: handler.logger}),
	)
	if err != nil {
		handler.logger.Error("payment session init failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("session_error", "could not open payment session"))
		return
	}

	sessionID := uuid.NewString()
	handler.mutex.Lock()
	handler.sessions[sessionID] = &agentSession{listing: listing, payment: paymentSession}
	handler.mutex.Unlock()

	ctx.JSON(http.StatusOK, CheckoutEnvelope{
		SessionID: sessionID,
		Listing:   listingPayload(listing),
		Invoice:   invoicePayload(paymentSession.Invoice()),
	})
}

func (handler *httpHandler) handlePay(ctx *gin.Context) {
	sessionID := ctx.Param("id")
	session := handler.lookupSession(sessionID)
	if session == nil {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_session", "no such payment session"))
		return
	}

	if err := session.payment.Pay(ctx.Request.Context()); err != nil {
		handler.respondPaymentError(ctx, session, err)
		return
	}

	walletState, err := handler.connector.Debit(session.listing.PriceMNEE)
	if err != nil {
		handler.logger.Error("wallet debit failed", zap.Error(err))
		ctx.JSON(http.StatusConflict, errorResponse("wallet_error", "wallet debit failed"))
		return
	}

	transaction, err := txledger.NewTransaction(
		uuid.NewString(),
		session.listing.Name,
		session.listing.PriceMNEE,
		time.Now().UnixMilli(),
		txledger.TransactionCompleted,
		txledger.NewSettlementReference(),
	)
	if err != nil {
		handler.logger.Error("transaction build failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("ledger_error", "could not record transaction"))
		return
	}
	if err := handler.ledger.Record(ctx.Request.Context(), transaction); err != nil {
		handler.logger.Warn("ledger persistence failed", zap.Error(err))
	}

	chatSession, err := chat.NewSession(session.listing, handler.completer)
	if err != nil {
		handler.logger.Error("chat session init failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("session_error", "could not open chat session"))
		return
	}
	handler.mutex.Lock()
	session.chat = chatSession
	handler.mutex.Unlock()

	accessToken, err := issueChatToken(handler.cfg, sessionID, session.listing.ID, time.Now())
	if err != nil {
		handler.logger.Error("chat token issuance failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("session_error", "could not issue access token"))
		return
	}

	ctx.JSON(http.StatusOK, PaymentEnvelope{
		Status:      string(payment.StatusCompleted),
		Wallet:      walletPayload(walletState),
		Transaction: transactionPayload(transaction),
		AccessToken: accessToken,
	})
}

func (handler *httpHandler) respondPaymentError(ctx *gin.Context, session *agentSession, err error) {
	snapshot := session.payment.CurrentSnapshot()
	switch {
	case errors.Is(err, payment.ErrPaymentInFlight):
		ctx.JSON(http.StatusConflict, errorResponse("payment_in_flight", "a payment attempt is already running"))
	case errors.Is(err, payment.ErrSessionCompleted):
		ctx.JSON(http.StatusConflict, errorResponse("session_completed", "the payment already completed"))
	case errors.Is(err, payment.ErrSessionClosed):
		ctx.JSON(http.StatusGone, errorResponse("session_closed", "the payment session is closed"))
	case errors.Is(err, payment.ErrAuthorizationDenied):
		ctx.JSON(http.StatusPaymentRequired, gin.H{
			"error": gin.H{
				"code":    "authorization_denied",
				"message": snapshot.ErrorMessage,
				"phase":   string(snapshot.FailedPhase),
			},
		})
	case errors.Is(err, payment.ErrSettlementFailed):
		ctx.JSON(http.StatusPaymentRequired, gin.H{
			"error": gin.H{
				"code":    "settlement_failed",
				"message": snapshot.ErrorMessage,
				"phase":   string(snapshot.FailedPhase),
			},
		})
	default:
		handler.logger.Error("payment failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("payment_error", "payment could not be processed"))
	}
}

func (handler *httpHandler) handleTransactions(ctx *gin.Context) {
	transactions := handler.ledger.Transactions()
	payloads := make([]TransactionPayload, 0, len(transactions))
	for _, transaction := range transactions {
		payloads = append(payloads, transactionPayload(transaction))
	}
	ctx.JSON(http.StatusOK, TransactionsEnvelope{Transactions: payloads})
}

func (handler *httpHandler) handleChatTranscript(ctx *gin.Context) {
	session, ok := handler.authorizeChat(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, chatEnvelope(session.chat))
}

func (handler *httpHandler) handleChatSend(ctx *gin.Context) {
	session, ok := handler.authorizeChat(ctx)
	if !ok {
		return
	}
	var request chatSendRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}

	if _, err := session.chat.Send(ctx.Request.Context(), request.Text); err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			ctx.JSON(http.StatusBadRequest, errorResponse("empty_message", "message text is required"))
		case errors.Is(err, chat.ErrSendInFlight):
			ctx.JSON(http.StatusConflict, errorResponse("send_in_flight", "a reply is already being generated"))
		case errors.Is(err, chat.ErrCompletionUnavailable):
			handler.logger.Warn("completion failed", zap.Error(err))
			ctx.JSON(http.StatusBadGateway, errorResponse("completion_unavailable", agentUnreachableMessage))
		default:
			handler.logger.Error("chat send failed", zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, errorResponse("chat_error", "message could not be delivered"))
		}
		return
	}
	ctx.JSON(http.StatusOK, chatEnvelope(session.chat))
}

// authorizeChat resolves the session named in the path and checks the bearer
// token grants exactly that session.
func (handler *httpHandler) authorizeChat(ctx *gin.Context) (*agentSession, bool) {
	sessionID := ctx.Param("id")
	tokenSubject, err := parseChatToken(handler.cfg, bearerToken(ctx))
	if err != nil || tokenSubject != sessionID {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "a valid access token is required"))
		return nil, false
	}
	handler.mutex.Lock()
	session := handler.sessions[sessionID]
	hasChat := session != nil && session.chat != nil
	handler.mutex.Unlock()
	if !hasChat {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_session", "no active chat for this session"))
		return nil, false
	}
	return session, true
}

func (handler *httpHandler) lookupSession(sessionID string) *agentSession {
	handler.mutex.Lock()
	defer handler.mutex.Unlock()
	return handler.sessions[sessionID]
}

// closeAllSessions tears down every open session after a wallet disconnect.
func (handler *httpHandler) closeAllSessions() {
	handler.mutex.Lock()
	defer handler.mutex.Unlock()
	for _, session := range handler.sessions {
		session.payment.Close()
	}
	handler.sessions = map[string]*agentSession{}
}

func chatEnvelope(chatSession *chat.Session) ChatEnvelope {
	messages := chatSession.Messages()
	payloads := make([]MessagePayload, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, messagePayload(message))
	}
	return ChatEnvelope{Messages: payloads, Pending: chatSession.Pending()}
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
