// Package server exposes the button game over HTTP: JSON calls and queries,
// a server-sent event stream of committed events, and a dev faucet.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"okinoko-button_game/chain"
	"okinoko-button_game/contract"
	"okinoko-button_game/sdk"
)

// Ledger is the part of chain.Node the server drives.
type Ledger interface {
	Submit(ctx context.Context, call chain.Call) (*chain.Receipt, error)
	Query(ctx context.Context, method, payload string) (*string, error)
	Balance(ctx context.Context, addr sdk.Address, asset sdk.Asset) (uint64, error)
	Deposit(ctx context.Context, addr sdk.Address, asset sdk.Asset, amount uint64) (uint64, error)
	Subscribe(buffer int) (<-chan *chain.Receipt, func())
}

type Options struct {
	// Faucet enables POST /accounts/:address/deposit.
	Faucet bool
	// FaucetToken, when set, must be sent as a bearer token to the faucet.
	FaucetToken string
	// Asset is the default asset for balance and deposit requests.
	Asset sdk.Asset
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

type Server struct {
	ledger Ledger
	opts   Options
}

func New(ledger Ledger, opts Options) *Server {
	if opts.Asset == "" {
		opts.Asset = sdk.AssetHive
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	return &Server{ledger: ledger, opts: opts}
}

// Handler returns the routed gin engine with request logging and CORS.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())

	r.GET("/health", s.health)
	contractAPI := r.Group("/contract")
	{
		contractAPI.POST("/call/:method", s.call)
		contractAPI.GET("/query/:method", s.query)
	}
	r.GET("/events", s.events)

	accounts := r.Group("/accounts/:address")
	{
		accounts.GET("/balance", s.balance)
		if s.opts.Faucet {
			accounts.POST("/deposit", s.faucetOnly(s.deposit))
		}
	}
	return r
}

// Run serves on addr until ctx is cancelled, then drains for up to 5s.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("button node listening on %s (faucet: %t)", addr, s.opts.Faucet)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestLogger logs method, path and status for each request (no body or secrets).
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Printf("button %s %s %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// faucetOnly guards the faucet with a bearer token when one is configured.
func (s *Server) faucetOnly(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.FaucetToken != "" {
			token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.FaucetToken)) != 1 {
				writeError(c, http.StatusUnauthorized, "faucet token required", contract.CodeUnauthorized)
				return
			}
		}
		next(c)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "button"})
}

// CallRequest is the body of POST /contract/call/{method}.
type CallRequest struct {
	Sender  sdk.Address  `json:"sender"`
	Payload string       `json:"payload"`
	Intents []sdk.Intent `json:"intents,omitempty"`
}

// CallResponse carries the receipt of a committed call. Result is the raw
// JSON the entry point returned, if any.
type CallResponse struct {
	TxId      string           `json:"txId"`
	Timestamp string           `json:"timestamp"`
	Result    json.RawMessage  `json:"result,omitempty"`
	Events    []contract.Event `json:"events"`
}

func (s *Server) call(c *gin.Context) {
	var req CallRequest
	dec := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), contract.CodeInvalidArgs)
		return
	}
	if strings.TrimSpace(req.Sender.String()) == "" {
		writeError(c, http.StatusBadRequest, "sender is required", contract.CodeInvalidArgs)
		return
	}

	rec, err := s.ledger.Submit(c.Request.Context(), chain.Call{
		Method:  c.Param("method"),
		Sender:  req.Sender,
		Payload: req.Payload,
		Intents: req.Intents,
	})
	if err != nil {
		writeCallError(c, err)
		return
	}
	resp := CallResponse{TxId: rec.TxId, Timestamp: rec.Timestamp, Events: rec.Events}
	if rec.Result != nil {
		resp.Result = json.RawMessage(*rec.Result)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) query(c *gin.Context) {
	out, err := s.ledger.Query(c.Request.Context(), c.Param("method"), c.Query("arg"))
	if err != nil {
		writeCallError(c, err)
		return
	}
	body := []byte("null")
	if out != nil {
		body = []byte(*out)
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Server) asset(c *gin.Context) (sdk.Asset, bool) {
	a := sdk.Asset(c.Query("asset"))
	if a == "" {
		return s.opts.Asset, true
	}
	return a, a == sdk.AssetHive || a == sdk.AssetHbd
}

// BalanceResponse reports holdings in base units and formatted.
type BalanceResponse struct {
	Address sdk.Address `json:"address"`
	Asset   sdk.Asset   `json:"asset"`
	Amount  uint64      `json:"amount"`
	Display string      `json:"display"`
}

func (s *Server) balance(c *gin.Context) {
	addr := sdk.Address(c.Param("address"))
	asset, ok := s.asset(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "unknown asset", contract.CodeInvalidArgs)
		return
	}
	amount, err := s.ledger.Balance(c.Request.Context(), addr, asset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Address: addr, Asset: asset, Amount: amount, Display: sdk.FormatAmount(amount)})
}

// DepositRequest is the body of the dev faucet.
type DepositRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) deposit(c *gin.Context) {
	addr := sdk.Address(c.Param("address"))
	asset, ok := s.asset(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "unknown asset", contract.CodeInvalidArgs)
		return
	}
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), contract.CodeInvalidArgs)
		return
	}
	amount, err := sdk.ParseAmount(req.Amount)
	if err != nil || amount == 0 {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid amount %q", req.Amount), contract.CodeInvalidArgs)
		return
	}
	total, err := s.ledger.Deposit(c.Request.Context(), addr, asset, amount)
	if err != nil {
		writeCallError(c, err)
		return
	}
	log.Printf("faucet: %s %s to %s", sdk.FormatAmount(amount), asset, addr)
	c.JSON(http.StatusOK, BalanceResponse{Address: addr, Asset: asset, Amount: total, Display: sdk.FormatAmount(total)})
}
