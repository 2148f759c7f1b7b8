package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hdstore/internal/config"
	"github.com/example/hdstore/internal/models"
)

// MoMo result codes that indicate a settled payment.
const (
	momoResultSuccess  = 0
	momoResultAuthOnly = 9000
)

// ErrInvalidSignature is returned when a callback's signature does not match
// the recomputed HMAC. The callback is rejected without any persistence.
var ErrInvalidSignature = errors.New("invalid momo callback signature")

// PaymentFailedError carries the gateway's failure result for an unsettled
// transaction.
type PaymentFailedError struct {
	Code    int
	Message string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed (code %d): %s", e.Code, e.Message)
}

// MomoService integrates with the MoMo payment gateway: it signs and sends
// outbound payment-creation requests and reconciles inbound IPN callbacks
// into orders and inventory movements.
type MomoService struct {
	db          *gorm.DB
	client      *http.Client
	partnerCode string
	accessKey   string
	secretKey   string
	endpoint    string
}

// NewMomoService constructs a MomoService from gateway credentials.
func NewMomoService(db *gorm.DB, cfg *config.Config) *MomoService {
	return &MomoService{
		db:          db,
		client:      &http.Client{Timeout: 30 * time.Second},
		partnerCode: cfg.MomoPartnerCode,
		accessKey:   cfg.MomoAccessKey,
		secretKey:   cfg.MomoSecretKey,
		endpoint:    cfg.MomoEndpoint,
	}
}

// CreatePaymentInput describes an outbound payment-creation request.
type CreatePaymentInput struct {
	OrderID     string
	Amount      int64
	OrderInfo   string
	ExtraData   string
	RedirectURL string
	IPNURL      string
}

type createPaymentRequest struct {
	PartnerCode string `json:"partnerCode"`
	PartnerName string `json:"partnerName"`
	StoreID     string `json:"storeId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	Lang        string `json:"lang"`
	RequestType string `json:"requestType"`
	AutoCapture bool   `json:"autoCapture"`
	ExtraData   string `json:"extraData"`
	Signature   string `json:"signature"`
}

// CreatePayment signs a payment-creation request and forwards it to the
// gateway, returning the gateway's response body verbatim.
func (s *MomoService) CreatePayment(ctx context.Context, in CreatePaymentInput) (map[string]any, error) {
	requestID := in.OrderID
	if requestID == "" {
		requestID = s.partnerCode + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	orderInfo := in.OrderInfo
	if orderInfo == "" {
		orderInfo = "Order payment"
	}

	req := createPaymentRequest{
		PartnerCode: s.partnerCode,
		PartnerName: "Retail Store",
		StoreID:     "RetailStore",
		RequestID:   requestID,
		Amount:      in.Amount,
		OrderID:     requestID,
		OrderInfo:   orderInfo,
		RedirectURL: in.RedirectURL,
		IPNURL:      in.IPNURL,
		Lang:        "vi",
		RequestType: "payWithMethod",
		AutoCapture: true,
		ExtraData:   in.ExtraData,
	}
	req.Signature = SignRequest(s.secretKey, createRawSignature(s.accessKey, req))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("momo gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("momo gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("momo gateway returned malformed response: %w", err)
	}

	return result, nil
}

// CallbackPayload is the IPN body the gateway posts after a transaction
// settles or fails.
type CallbackPayload struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// createRawSignature builds the canonical &-joined key=value string over the
// payment-creation field set, in the gateway's documented field order.
func createRawSignature(accessKey string, req createPaymentRequest) string {
	return "accessKey=" + accessKey +
		"&amount=" + strconv.FormatInt(req.Amount, 10) +
		"&extraData=" + req.ExtraData +
		"&ipnUrl=" + req.IPNURL +
		"&orderId=" + req.OrderID +
		"&orderInfo=" + req.OrderInfo +
		"&partnerCode=" + req.PartnerCode +
		"&redirectUrl=" + req.RedirectURL +
		"&requestId=" + req.RequestID +
		"&requestType=" + req.RequestType
}

// CallbackRawSignature builds the canonical string over the callback field
// set. requestId mirrors orderId per the gateway contract.
func CallbackRawSignature(accessKey string, cb CallbackPayload) string {
	return "accessKey=" + accessKey +
		"&amount=" + strconv.FormatInt(cb.Amount, 10) +
		"&extraData=" + cb.ExtraData +
		"&message=" + cb.Message +
		"&orderId=" + cb.OrderID +
		"&orderInfo=" + cb.OrderInfo +
		"&partnerCode=" + cb.PartnerCode +
		"&requestId=" + cb.OrderID +
		"&responseTime=" + strconv.FormatInt(cb.ResponseTime, 10) +
		"&resultCode=" + strconv.Itoa(cb.ResultCode) +
		"&transId=" + strconv.FormatInt(cb.TransID, 10)
}

// SignRequest computes the hex HMAC-SHA256 of the raw signature string.
func SignRequest(secretKey, raw string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallbackSignature recomputes the callback HMAC and compares it
// against the gateway-supplied signature in constant time.
func (s *MomoService) VerifyCallbackSignature(cb CallbackPayload) bool {
	expected := SignRequest(s.secretKey, CallbackRawSignature(s.accessKey, cb))
	return hmac.Equal([]byte(expected), []byte(cb.Signature))
}

// Receipt is the synthesized payment summary returned to the client after a
// settled callback.
type Receipt struct {
	OrderID       uuid.UUID          `json:"order_id"`
	OrderCode     string             `json:"order_code"`
	MomoTransID   string             `json:"momo_trans_id"`
	PaymentTime   time.Time          `json:"payment_time"`
	PaymentMethod string             `json:"payment_method"`
	TotalAmount   float64            `json:"total_amount"`
	Items         []models.OrderItem `json:"items,omitempty"`
}

// CartBatchRef names the exact inventory lot a cart line was sold from.
type CartBatchRef struct {
	DetailID string `json:"detail_id"`
}

// CartItem is one line of the cart snapshot embedded in extraData.
type CartItem struct {
	ProductID   string        `json:"product_id"`
	Quantity    int           `json:"quantity"`
	Price       float64       `json:"price"`
	BatchDetail *CartBatchRef `json:"batch_detail,omitempty"`
}

// CartData is the order payload the client embeds in extraData before
// redirecting to the gateway.
type CartData struct {
	CustomerID  string     `json:"customer_id"`
	Items       []CartItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	Note        string     `json:"note"`
}

// ProcessCallback reconciles a settled IPN callback: it verifies the
// signature, derives the day's next order code, recovers the cart from
// extraData when possible, creates the order and decrements inventory.
// Order creation and all batch decrements run in one transaction, and a
// replayed callback for an already-processed transaction id returns the
// original receipt without touching inventory again.
func (s *MomoService) ProcessCallback(ctx context.Context, cb CallbackPayload) (*Receipt, error) {
	if !s.VerifyCallbackSignature(cb) {
		log.Printf("[MoMo] signature mismatch for order %s, trans %d", cb.OrderID, cb.TransID)
		return nil, ErrInvalidSignature
	}

	if cb.ResultCode != momoResultSuccess && cb.ResultCode != momoResultAuthOnly {
		return nil, &PaymentFailedError{Code: cb.ResultCode, Message: cb.Message}
	}

	var receipt *Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := reconcileCallback(&gormCallbackStore{tx: tx}, cb, time.Now())
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// callbackStore is the persistence surface callback reconciliation needs.
// The gorm implementation runs every method inside one transaction.
type callbackStore interface {
	orderByTransID(transID string) (*models.Order, error)
	nextOrderCode(now time.Time) (string, error)
	createOrder(order *models.Order) error
	consumeLine(item CartItem) error
}

type gormCallbackStore struct {
	tx *gorm.DB
}

func (s *gormCallbackStore) orderByTransID(transID string) (*models.Order, error) {
	var order models.Order
	err := s.tx.Preload("Items").Where("momo_trans_id = ?", transID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *gormCallbackStore) nextOrderCode(now time.Time) (string, error) {
	return GenerateOrderCode(s.tx, now)
}

func (s *gormCallbackStore) createOrder(order *models.Order) error {
	return s.tx.Create(order).Error
}

func (s *gormCallbackStore) consumeLine(item CartItem) error {
	return consumeInventory(s.tx, item)
}

// reconcileCallback turns a verified, settled callback into an order plus its
// inventory movements. A transaction id that was already reconciled returns
// the original receipt and performs no further writes.
func reconcileCallback(store callbackStore, cb CallbackPayload, now time.Time) (*Receipt, error) {
	transID := strconv.FormatInt(cb.TransID, 10)

	existing, err := store.orderByTransID(transID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Printf("[MoMo] duplicate callback for trans %s, returning original receipt", transID)
		return &Receipt{
			OrderID:       existing.ID,
			OrderCode:     existing.OrderCode,
			MomoTransID:   transID,
			PaymentTime:   existing.CreatedAt,
			PaymentMethod: existing.PaymentMethod,
			TotalAmount:   existing.TotalAmount,
			Items:         existing.Items,
		}, nil
	}

	orderCode, err := store.nextOrderCode(now)
	if err != nil {
		return nil, err
	}

	cart := decodeCart(cb.ExtraData)

	order := models.Order{
		OrderCode:     orderCode,
		TotalAmount:   float64(cb.Amount),
		PaymentMethod: "momo",
		PaymentStatus: true,
		Status:        models.OrderStatusCompleted,
		MomoTransID:   transID,
	}

	if cart == nil {
		order.Note = fmt.Sprintf("MoMo payment - transaction %s", transID)
	} else {
		order.Note = cart.Note
		if cart.TotalAmount > 0 {
			order.TotalAmount = cart.TotalAmount
		}
		if id, err := uuid.Parse(cart.CustomerID); err == nil {
			order.CustomerID = &id
		}
		for _, item := range cart.Items {
			line := models.OrderItem{
				Quantity: item.Quantity,
				Price:    item.Price,
			}
			if id, err := uuid.Parse(item.ProductID); err == nil {
				line.ProductID = &id
			}
			order.Items = append(order.Items, line)
		}
	}

	if err := store.createOrder(&order); err != nil {
		return nil, err
	}

	if cart != nil {
		for _, item := range cart.Items {
			if err := store.consumeLine(item); err != nil {
				return nil, err
			}
		}
	}

	return &Receipt{
		OrderID:       order.ID,
		OrderCode:     orderCode,
		MomoTransID:   transID,
		PaymentTime:   now,
		PaymentMethod: "momo",
		TotalAmount:   order.TotalAmount,
		Items:         order.Items,
	}, nil
}

// decodeCart recovers the cart snapshot from the base64/JSON extraData blob.
// A missing or malformed blob degrades to a nil cart; the callback still
// produces a minimal order.
func decodeCart(extraData string) *CartData {
	if extraData == "" {
		return nil
	}

	decoded, err := base64.StdEncoding.DecodeString(extraData)
	if err != nil {
		log.Printf("[MoMo] failed to base64-decode extraData: %v", err)
		return nil
	}

	var cart CartData
	if err := json.Unmarshal(decoded, &cart); err != nil {
		log.Printf("[MoMo] failed to parse extraData cart: %v", err)
		return nil
	}

	return &cart
}

// consumeInventory applies one cart line's quantity to the product's lots.
// A line naming an explicit lot hits that lot directly; otherwise the
// quantity is drawn from the oldest-manufactured lots first.
func consumeInventory(tx *gorm.DB, item CartItem) error {
	if item.Quantity <= 0 {
		return nil
	}

	if item.BatchDetail != nil && item.BatchDetail.DetailID != "" {
		batchID, err := uuid.Parse(item.BatchDetail.DetailID)
		if err != nil {
			log.Printf("[MoMo] invalid batch reference %q, falling back to FIFO", item.BatchDetail.DetailID)
		} else {
			var batch models.ProductBatch
			if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					log.Printf("[MoMo] batch %s not found, skipping decrement", batchID)
					return nil
				}
				return err
			}
			return tx.Model(&models.ProductBatch{}).
				Where("id = ?", batchID).
				Update("output_quantity", batch.OutputQuantity+item.Quantity).Error
		}
	}

	productID, err := uuid.Parse(item.ProductID)
	if err != nil {
		log.Printf("[MoMo] invalid product reference %q, skipping decrement", item.ProductID)
		return nil
	}

	var batches []models.ProductBatch
	if err := tx.
		Where("product_id = ? AND input_quantity - output_quantity > 0", productID).
		Order("date_of_manufacture asc").
		Find(&batches).Error; err != nil {
		return err
	}

	draws := PlanConsumption(batches, item.Quantity)
	for i, take := range draws {
		if take == 0 {
			continue
		}
		if err := tx.Model(&models.ProductBatch{}).
			Where("id = ?", batches[i].ID).
			Update("output_quantity", batches[i].OutputQuantity+take).Error; err != nil {
			return err
		}
	}

	return nil
}

// PlanConsumption allocates a requested quantity across inventory lots,
// oldest manufacture date first. The returned slice is aligned with the
// input; each entry is the number of units drawn from that lot. When supply
// runs out the shortfall is left unfulfilled rather than reported.
func PlanConsumption(batches []models.ProductBatch, requested int) []int {
	draws := make([]int, len(batches))

	order := make([]int, len(batches))
	for i := range order {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && batches[order[j]].DateOfManufacture.Before(batches[order[j-1]].DateOfManufacture); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	remaining := requested
	for _, idx := range order {
		if remaining <= 0 {
			break
		}
		available := batches[idx].Inventory()
		if available <= 0 {
			continue
		}
		take := remaining
		if available < take {
			take = available
		}
		draws[idx] = take
		remaining -= take
	}

	return draws
}
