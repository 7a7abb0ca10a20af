package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jsattler/depot-tracker/internal/application"
	"github.com/jsattler/depot-tracker/internal/domain"
)

// Ingestor processes one weekly publication end to end.
type Ingestor interface {
	ProcessPublication(ctx context.Context, raw domain.RawPublication) (*application.IngestResult, error)
}

// DepotReader is the read side exposed to collaborators: the price fetcher
// pulls instrument identifiers, reporting pulls values and history.
type DepotReader interface {
	ActiveInstrumentIDs(ctx context.Context, depotID string) ([]string, error)
	ValueAt(ctx context.Context, depotID string, date time.Time) (*domain.DepotValue, error)
	ListVersions(ctx context.Context, depotID string) ([]domain.VersionSummary, error)
}

type Handler struct {
	ingestor Ingestor
	reader   DepotReader
}

func NewHandler(ingestor Ingestor, reader DepotReader) *Handler {
	return &Handler{
		ingestor: ingestor,
		reader:   reader,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// HoldingPayload is one table row as sent by the extraction collaborator.
// Dates travel as YYYY-MM-DD strings.
type HoldingPayload struct {
	InstrumentID   string         `json:"instrument_id"`
	UnderlyingName string         `json:"underlying_name"`
	AssetClass     string         `json:"asset_class"`
	Subtype        string         `json:"subtype"`
	Quantity       domain.Decimal `json:"quantity"`
	BuyingDate     string         `json:"buying_date"`
	BuyingPrice    domain.Decimal `json:"buying_price"`
}

type IngestPublicationRequest struct {
	PublicationDate string           `json:"publication_date" binding:"required"`
	Holdings        []HoldingPayload `json:"holdings"`
	CashValue       domain.Decimal   `json:"cash_value"`
}

func (r IngestPublicationRequest) toRaw(depotID string) (domain.RawPublication, error) {
	pubDate, err := time.Parse(time.DateOnly, r.PublicationDate)
	if err != nil {
		return domain.RawPublication{}, err
	}

	holdings := make([]domain.RawHolding, 0, len(r.Holdings))
	for _, h := range r.Holdings {
		var buyDate time.Time
		if h.BuyingDate != "" {
			buyDate, err = time.Parse(time.DateOnly, h.BuyingDate)
			if err != nil {
				return domain.RawPublication{}, err
			}
		}
		holdings = append(holdings, domain.RawHolding{
			InstrumentID:   h.InstrumentID,
			UnderlyingName: h.UnderlyingName,
			AssetClass:     domain.AssetClass(h.AssetClass),
			Subtype:        h.Subtype,
			Quantity:       h.Quantity,
			BuyingDate:     buyDate,
			BuyingPrice:    h.BuyingPrice,
		})
	}

	return domain.RawPublication{
		DepotID:         depotID,
		PublicationDate: pubDate,
		Holdings:        holdings,
		CashValue:       r.CashValue,
	}, nil
}

func (h *Handler) IngestPublication(c *gin.Context) {
	var req IngestPublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.ErrorContext(c.Request.Context(), "invalid publication body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	raw, err := req.toRaw(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "dates must be YYYY-MM-DD: " + err.Error()})
		return
	}

	result, err := h.ingestor.ProcessPublication(c.Request.Context(), raw)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrMalformedSnapshot) {
			status = http.StatusUnprocessableEntity
		}
		slog.ErrorContext(c.Request.Context(), "failed to process publication",
			"depot_id", raw.DepotID, "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	if result.Duplicate {
		c.JSON(http.StatusOK, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) ActiveInstruments(c *gin.Context) {
	depotID := c.Param("id")

	ids, err := h.reader.ActiveInstrumentIDs(c.Request.Context(), depotID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to list active instruments",
			"depot_id", depotID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if ids == nil {
		ids = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"depot_id": depotID, "instrument_ids": ids})
}

func (h *Handler) ValueAt(c *gin.Context) {
	depotID := c.Param("id")

	dateStr := c.Query("date")
	if dateStr == "" {
		dateStr = time.Now().UTC().Format(time.DateOnly)
	}
	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}

	value, err := h.reader.ValueAt(c.Request.Context(), depotID, date)
	if err != nil {
		if errors.Is(err, domain.ErrValueNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		slog.ErrorContext(c.Request.Context(), "failed to query value",
			"depot_id", depotID, "date", dateStr, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, value)
}

func (h *Handler) ListVersions(c *gin.Context) {
	depotID := c.Param("id")

	versions, err := h.reader.ListVersions(c.Request.Context(), depotID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to list versions",
			"depot_id", depotID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if versions == nil {
		versions = []domain.VersionSummary{}
	}

	c.JSON(http.StatusOK, versions)
}
