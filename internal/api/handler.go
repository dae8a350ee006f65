package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"medstore/m/domain"
	"medstore/m/internal/catalog"
	"medstore/m/internal/export"
	"medstore/m/internal/ledger"
	"medstore/m/internal/report"
	"medstore/m/internal/store"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

const dateLayout = "2006-01-02"

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	catalog *catalog.Store
	ledger  *ledger.Ledger
	reports *report.Engine
	store   *store.Store
	secret  string
}

// New constructs a Handler.
func New(cs *catalog.Store, l *ledger.Ledger, re *report.Engine, st *store.Store, secret string) *Handler {
	return &Handler{catalog: cs, ledger: l, reports: re, store: st, secret: secret}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.searchMedicines)
			r.Post("/", h.createMedicine)
			r.Get("/{id}", h.getMedicine)
			r.Put("/{id}", h.updateMedicine)
			r.Delete("/{id}", h.deleteMedicine)
			r.Post("/{id}/stock", h.adjustStock)
		})

		pr.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.recordTransaction)
			r.Get("/", h.listTransactions)
			r.Get("/{id}", h.getTransaction)
			r.Delete("/{id}", h.deleteTransaction)
			r.Get("/{id}/invoice.pdf", h.invoicePDF)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/low-stock", h.lowStockReport)
			r.Get("/expiring", h.expiringReport)
			r.Get("/tax", h.taxReport)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

// Auth Handlers

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "username, email, password and role are required")
		return
	}
	if req.Role != "owner" && req.Role != "employee" {
		respondError(w, http.StatusBadRequest, "role must be owner or employee")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	userID, err := h.store.CreateUser(req.Username, req.Email, string(hashed), req.Role)
	if err != nil {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}

	token, err := h.generateToken(userID, req.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  domain.User{ID: userID, Username: req.Username, Email: strings.ToLower(req.Email), Role: req.Role},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user.ID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	uid := r.Context().Value(ctxUserID).(int64)
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if err := h.store.UpdatePassword(uid, string(hashed)); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Medicine handlers

type medicineRequest struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	BatchNo       string  `json:"batch_no"`
	Supplier      string  `json:"supplier"`
	ExpiryDate    string  `json:"expiry_date"`
	IsScheduleH   bool    `json:"is_schedule_h"`
	Price         float64 `json:"price"`
	StockQuantity int64   `json:"stock_quantity"`
	MinStockLevel int64   `json:"min_stock_level"`
}

func (req medicineRequest) toDomain() (domain.Medicine, error) {
	expiry, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		return domain.Medicine{}, fmt.Errorf("%w: expiry_date must be in YYYY-MM-DD format", domain.ErrInvalidInput)
	}
	return domain.Medicine{
		ID:            req.ID,
		Name:          req.Name,
		BatchNo:       req.BatchNo,
		Supplier:      req.Supplier,
		ExpiryDate:    expiry,
		IsScheduleH:   req.IsScheduleH,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		MinStockLevel: req.MinStockLevel,
	}, nil
}

func (h *Handler) searchMedicines(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	respondJSON(w, http.StatusOK, h.catalog.Search(query))
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	m, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "owner", "employee") {
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := req.toDomain()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.catalog.Add(m); err != nil {
		respondDomainError(w, err)
		return
	}
	h.persist()
	respondJSON(w, http.StatusCreated, m)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "owner", "employee") {
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ID = chi.URLParam(r, "id")
	m, err := req.toDomain()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.catalog.Update(m); err != nil {
		respondDomainError(w, err)
		return
	}
	updated, err := h.catalog.Get(m.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	h.persist()
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "owner") {
		return
	}
	if err := h.catalog.Delete(chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	h.persist()
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// adjustStock is the manual stock-correction path; transactions adjust
// stock through the ledger.
func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "owner", "employee") {
		return
	}
	var payload struct {
		Delta int64 `json:"delta"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.catalog.AdjustStock(chi.URLParam(r, "id"), payload.Delta)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	h.persist()
	respondJSON(w, http.StatusOK, m)
}

// Transaction handlers

type transactionRequest struct {
	Type              string               `json:"type"`
	Items             []ledger.ItemRequest `json:"items"`
	CustomerName      string               `json:"customer_name"`
	PrescriptionFiles []string             `json:"prescription_files"`
	SkipPrescription  bool                 `json:"skip_prescription"`
	ApplyGST          bool                 `json:"apply_gst"`
	Date              string               `json:"date"`
}

func (h *Handler) recordTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "owner", "employee") {
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		date = parsed
	}
	tx, err := h.ledger.Record(ledger.RecordRequest{
		Type:              domain.TransactionType(req.Type),
		Items:             req.Items,
		CustomerName:      req.CustomerName,
		PrescriptionFiles: req.PrescriptionFiles,
		SkipPrescription:  req.SkipPrescription,
		ApplyGST:          req.ApplyGST,
		Date:              date,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	h.persist()
	respondJSON(w, http.StatusCreated, tx)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "owner") {
		return
	}
	if err := h.ledger.Delete(chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	h.persist()
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	filter := ledger.Filter{
		Type:     domain.TransactionType(strings.TrimSpace(r.URL.Query().Get("type"))),
		Customer: strings.TrimSpace(r.URL.Query().Get("customer")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		respondError(w, http.StatusBadRequest, "type must be sell or purchase")
		return
	}
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	filter.From, filter.To = from, to
	respondJSON(w, http.StatusOK, h.ledger.List(filter))
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	names := make(map[string]string, len(tx.Items))
	for _, it := range tx.Items {
		if m, err := h.catalog.Get(it.MedicineID); err == nil {
			names[it.MedicineID] = m.Name
		}
	}
	w.Header().Set("Content-Type", "application/pdf")
	if err := export.InvoicePDF(w, tx, names); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to render invoice")
	}
}

// Report handlers

func (h *Handler) lowStockReport(w http.ResponseWriter, r *http.Request) {
	items := h.reports.LowStock()
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := export.LowStockCSV(w, items); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to render report")
		}
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) expiringReport(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 30
	}
	medicines := h.reports.Expiring(days, time.Now())
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := export.ExpiringCSV(w, medicines); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to render report")
		}
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) taxReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "owner") {
		return
	}
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	data, err := h.reports.Tax(from, to)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := export.TaxReportCSV(w, data, from, to); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to render report")
		}
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		if err := export.TaxReportPDF(w, data, from, to); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to render report")
		}
	default:
		respondJSON(w, http.StatusOK, data)
	}
}

// Helpers

func (h *Handler) dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var from, to time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("start_date")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
			return from, to, false
		}
		from = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end_date")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "end_date must be in YYYY-MM-DD format")
			return from, to, false
		}
		to = parsed
	}
	return from, to, true
}

// persist writes the current in-memory state to the snapshot store after a
// mutation. The catalog, ledger and counters are captured atomically so the
// snapshot never contains a transaction whose stock delta is missing from
// the catalog. The in-memory stores remain authoritative; a failed save is
// logged and retried on the next mutation.
func (h *Handler) persist() {
	if h.store == nil {
		return
	}
	medicines, txs, counters := h.ledger.Snapshot()
	if err := h.store.SaveSnapshot(medicines, txs, counters); err != nil {
		log.Error().Err(err).Msg("unable to save snapshot")
	}
}

func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPrescriptionRequired):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
