package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tdquang/car-escrow/internal/adapter/ledger"
	"github.com/tdquang/car-escrow/internal/core/domain"
	"github.com/tdquang/car-escrow/internal/core/service"
)

// HTTPHandler exposes the escrow engine's operations and query surface as
// JSON over HTTP. Timestamps cross the boundary as unix seconds and
// amounts in the ledger's smallest unit.
type HTTPHandler struct {
	escrow *service.EscrowService
}

func NewHTTPHandler(escrow *service.EscrowService) *HTTPHandler {
	return &HTTPHandler{escrow: escrow}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/cars", h.ListCar)
	mux.HandleFunc("/api/cars/rate", h.SetRateAndDeposit)
	mux.HandleFunc("/api/cars/get", h.GetListing)
	mux.HandleFunc("/api/cars/available", h.GetAvailable)
	mux.HandleFunc("/api/bookings", h.BookCar)
	mux.HandleFunc("/api/bookings/cancel", h.CancelBooking)
	mux.HandleFunc("/api/bookings/complete", h.CompleteRental)
	mux.HandleFunc("/api/rentals/get", h.GetRentalInfo)
}

type listCarRequest struct {
	Owner         string       `json:"owner"`
	PricePerDay   domain.Money `json:"price_per_day"`
	DepositAmount domain.Money `json:"deposit_amount"`
	MetadataRef   string       `json:"metadata_ref"`
}

type listCarResponse struct {
	ListingID uint64 `json:"listing_id"`
}

func (h *HTTPHandler) ListCar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req listCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Owner == "" {
		writeError(w, http.StatusBadRequest, "missing owner")
		return
	}

	id, err := h.escrow.ListCar(r.Context(), domain.Account(req.Owner), req.PricePerDay, req.DepositAmount, req.MetadataRef)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listCarResponse{ListingID: id})
}

type setRateRequest struct {
	ListingID     uint64       `json:"listing_id"`
	Caller        string       `json:"caller"`
	PricePerDay   domain.Money `json:"price_per_day"`
	DepositAmount domain.Money `json:"deposit_amount"`
}

func (h *HTTPHandler) SetRateAndDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.escrow.SetRateAndDeposit(r.Context(), req.ListingID, domain.Account(req.Caller), req.PricePerDay, req.DepositAmount)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type bookCarRequest struct {
	ListingID uint64       `json:"listing_id"`
	Renter    string       `json:"renter"`
	StartTime int64        `json:"start_time"` // unix seconds
	EndTime   int64        `json:"end_time"`
	Payment   domain.Money `json:"payment"`
}

type bookCarResponse struct {
	RentalID uint64 `json:"rental_id"`
}

func (h *HTTPHandler) BookCar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Renter == "" || req.StartTime == 0 {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	rentalID, err := h.escrow.BookCar(
		r.Context(), req.ListingID, domain.Account(req.Renter),
		time.Unix(req.StartTime, 0), time.Unix(req.EndTime, 0), req.Payment,
	)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookCarResponse{RentalID: rentalID})
}

type settleRequest struct {
	ListingID uint64 `json:"listing_id"`
	Caller    string `json:"caller"`
}

type cancelResponse struct {
	Refund domain.Money `json:"refund"`
}

func (h *HTTPHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	refund, err := h.escrow.CancelBooking(r.Context(), req.ListingID, domain.Account(req.Caller))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cancelResponse{Refund: refund})
}

type completeResponse struct {
	OwnerPayout  domain.Money `json:"owner_payout"`
	RenterPayout domain.Money `json:"renter_payout"`
}

func (h *HTTPHandler) CompleteRental(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerPayout, renterPayout, err := h.escrow.CompleteRental(r.Context(), req.ListingID, domain.Account(req.Caller))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, completeResponse{OwnerPayout: ownerPayout, RenterPayout: renterPayout})
}

type listingResponse struct {
	ID            uint64       `json:"id"`
	Owner         string       `json:"owner"`
	PricePerDay   domain.Money `json:"price_per_day"`
	DepositAmount domain.Money `json:"deposit_amount"`
	IsAvailable   bool         `json:"is_available"`
	MetadataRef   string       `json:"metadata_ref"`
}

func (h *HTTPHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	l, err := h.escrow.GetListing(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listingResponse{
		ID:            l.ID,
		Owner:         string(l.Owner),
		PricePerDay:   l.PricePerDay,
		DepositAmount: l.DepositAmount,
		IsAvailable:   l.IsAvailable,
		MetadataRef:   l.MetadataRef,
	})
}

type rentalResponse struct {
	ID         uint64       `json:"id"`
	ListingID  uint64       `json:"listing_id"`
	Renter     string       `json:"renter"`
	StartTime  int64        `json:"start_time"`
	EndTime    int64        `json:"end_time"`
	RentalDays uint64       `json:"rental_days"`
	AmountHeld domain.Money `json:"amount_held"`
	Active     bool         `json:"active"`
}

func (h *HTTPHandler) GetRentalInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := parseID(w, r, "listing_id")
	if !ok {
		return
	}

	rental, err := h.escrow.GetRentalInfo(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rentalResponse{
		ID:         rental.ID,
		ListingID:  rental.ListingID,
		Renter:     string(rental.Renter),
		StartTime:  rental.StartTime.Unix(),
		EndTime:    rental.EndTime.Unix(),
		RentalDays: rental.RentalDays,
		AmountHeld: rental.AmountHeld,
		Active:     rental.Active,
	})
}

func (h *HTTPHandler) GetAvailable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ids := h.escrow.GetAvailableListings(r.Context())
	writeJSON(w, http.StatusOK, map[string][]uint64{"listing_ids": ids})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uint64, bool) {
	id, err := strconv.ParseUint(r.URL.Query().Get(param), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoActiveRental):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnavailable),
		errors.Is(err, service.ErrTooLateToCancel),
		errors.Is(err, service.ErrTooEarly):
		status = http.StatusConflict
	case errors.Is(err, service.ErrIncorrectPayment),
		errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, service.ErrNotRenter):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrStartInPast),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountOverflow):
		status = http.StatusBadRequest
	}

	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
