package services

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/hdstore/internal/models"
)

func testCallback() CallbackPayload {
	cb := CallbackPayload{
		PartnerCode:  "MOMO",
		OrderID:      "MOMO1700000000000",
		RequestID:    "MOMO1700000000000",
		Amount:       185000,
		OrderInfo:    "Order payment",
		TransID:      4088878653,
		ResultCode:   0,
		Message:      "Successful.",
		ResponseTime: 1700000123456,
		ExtraData:    "",
	}
	return cb
}

func TestCallbackRawSignature(t *testing.T) {
	cb := testCallback()
	got := CallbackRawSignature("F8BBA842ECF85", cb)
	want := "accessKey=F8BBA842ECF85" +
		"&amount=185000" +
		"&extraData=" +
		"&message=Successful." +
		"&orderId=MOMO1700000000000" +
		"&orderInfo=Order payment" +
		"&partnerCode=MOMO" +
		"&requestId=MOMO1700000000000" +
		"&responseTime=1700000123456" +
		"&resultCode=0" +
		"&transId=4088878653"
	if got != want {
		t.Fatalf("raw signature mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestVerifyCallbackSignature(t *testing.T) {
	svc := &MomoService{accessKey: "F8BBA842ECF85", secretKey: "K951B6PE1waDMi640xX08PD3vg6EkVlz"}

	genuine := testCallback()
	genuine.Signature = SignRequest(svc.secretKey, CallbackRawSignature(svc.accessKey, genuine))

	if !svc.VerifyCallbackSignature(genuine) {
		t.Fatal("genuine payload rejected")
	}

	mutations := map[string]func(cb *CallbackPayload){
		"amount":       func(cb *CallbackPayload) { cb.Amount++ },
		"extraData":    func(cb *CallbackPayload) { cb.ExtraData = "x" },
		"message":      func(cb *CallbackPayload) { cb.Message = "Successful?" },
		"orderId":      func(cb *CallbackPayload) { cb.OrderID = "MOMO1700000000001" },
		"orderInfo":    func(cb *CallbackPayload) { cb.OrderInfo = "order payment" },
		"partnerCode":  func(cb *CallbackPayload) { cb.PartnerCode = "MOM0" },
		"responseTime": func(cb *CallbackPayload) { cb.ResponseTime++ },
		"resultCode":   func(cb *CallbackPayload) { cb.ResultCode = 9000 },
		"transId":      func(cb *CallbackPayload) { cb.TransID++ },
		"signature":    func(cb *CallbackPayload) { cb.Signature = cb.Signature[1:] + "0" },
	}

	for name, mutate := range mutations {
		cb := genuine
		mutate(&cb)
		if svc.VerifyCallbackSignature(cb) {
			t.Errorf("payload with mutated %s accepted", name)
		}
	}
}

func TestDecodeCart(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString([]byte(
		`{"items":[{"product_id":"7b4a1c9e-0000-0000-0000-000000000001","quantity":2,"price":50000}],"total_amount":100000}`,
	))

	t.Run("valid", func(t *testing.T) {
		cart := decodeCart(valid)
		if cart == nil {
			t.Fatal("expected cart, got nil")
		}
		if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
			t.Fatalf("unexpected cart: %+v", cart)
		}
		if cart.TotalAmount != 100000 {
			t.Fatalf("total = %v, want 100000", cart.TotalAmount)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if cart := decodeCart(""); cart != nil {
			t.Fatalf("expected nil cart, got %+v", cart)
		}
	})

	t.Run("not base64", func(t *testing.T) {
		if cart := decodeCart("!!not-base64!!"); cart != nil {
			t.Fatalf("expected nil cart, got %+v", cart)
		}
	})

	t.Run("not json", func(t *testing.T) {
		blob := base64.StdEncoding.EncodeToString([]byte("not json"))
		if cart := decodeCart(blob); cart != nil {
			t.Fatalf("expected nil cart, got %+v", cart)
		}
	})
}

type stubCallbackStore struct {
	orders   []*models.Order
	consumed []CartItem
	seq      int
}

func (s *stubCallbackStore) orderByTransID(transID string) (*models.Order, error) {
	for _, o := range s.orders {
		if o.MomoTransID == transID {
			return o, nil
		}
	}
	return nil, nil
}

func (s *stubCallbackStore) nextOrderCode(now time.Time) (string, error) {
	s.seq++
	return FormatOrderCode(now, s.seq), nil
}

func (s *stubCallbackStore) createOrder(order *models.Order) error {
	order.ID = uuid.New()
	s.orders = append(s.orders, order)
	return nil
}

func (s *stubCallbackStore) consumeLine(item CartItem) error {
	s.consumed = append(s.consumed, item)
	return nil
}

func TestReconcileCallbackCreatesOrderAndConsumesStock(t *testing.T) {
	store := &stubCallbackStore{}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	cart := CartData{
		CustomerID:  uuid.NewString(),
		Items:       []CartItem{{ProductID: uuid.NewString(), Quantity: 2, Price: 50000}},
		TotalAmount: 100000,
	}
	blob, err := json.Marshal(cart)
	if err != nil {
		t.Fatalf("marshal cart: %v", err)
	}

	cb := testCallback()
	cb.ExtraData = base64.StdEncoding.EncodeToString(blob)

	receipt, err := reconcileCallback(store, cb, now)
	if err != nil {
		t.Fatalf("reconcileCallback: %v", err)
	}

	if receipt.OrderCode != "HD-20250101-0001" {
		t.Errorf("order code = %q, want HD-20250101-0001", receipt.OrderCode)
	}
	if receipt.TotalAmount != 100000 {
		t.Errorf("total = %v, want the cart total 100000", receipt.TotalAmount)
	}
	if len(store.orders) != 1 {
		t.Fatalf("created %d orders, want 1", len(store.orders))
	}
	if len(store.consumed) != 1 || store.consumed[0].Quantity != 2 {
		t.Fatalf("consumed lines = %+v, want the one cart line", store.consumed)
	}
}

func TestReconcileCallbackDuplicateTransID(t *testing.T) {
	store := &stubCallbackStore{}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	cart := CartData{
		CustomerID:  uuid.NewString(),
		Items:       []CartItem{{ProductID: uuid.NewString(), Quantity: 3, Price: 40000}},
		TotalAmount: 120000,
	}
	blob, err := json.Marshal(cart)
	if err != nil {
		t.Fatalf("marshal cart: %v", err)
	}

	cb := testCallback()
	cb.ExtraData = base64.StdEncoding.EncodeToString(blob)

	first, err := reconcileCallback(store, cb, now)
	if err != nil {
		t.Fatalf("first reconcileCallback: %v", err)
	}

	// The gateway retries the IPN with the same transaction id.
	second, err := reconcileCallback(store, cb, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second reconcileCallback: %v", err)
	}

	if second.OrderID != first.OrderID || second.OrderCode != first.OrderCode {
		t.Fatalf("replay produced a different receipt: first %+v, second %+v", first, second)
	}
	if len(store.orders) != 1 {
		t.Fatalf("replay created a second order: %d orders", len(store.orders))
	}
	if len(store.consumed) != 1 {
		t.Fatalf("replay decremented inventory again: %d consumed lines", len(store.consumed))
	}
}

func batch(manufactured time.Time, input, output int) models.ProductBatch {
	return models.ProductBatch{
		InputQuantity:     input,
		OutputQuantity:    output,
		DateOfManufacture: manufactured,
	}
}

func TestPlanConsumption(t *testing.T) {
	day1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)

	tests := []struct {
		name      string
		batches   []models.ProductBatch
		requested int
		want      []int
	}{
		{
			name:      "oldest lot drained first",
			batches:   []models.ProductBatch{batch(day1, 5, 0), batch(day2, 10, 0)},
			requested: 8,
			want:      []int{5, 3},
		},
		{
			name:      "input order does not matter",
			batches:   []models.ProductBatch{batch(day2, 10, 0), batch(day1, 5, 0)},
			requested: 8,
			want:      []int{3, 5},
		},
		{
			name:      "insufficient stock consumes what exists",
			batches:   []models.ProductBatch{batch(day1, 3, 0), batch(day2, 2, 0)},
			requested: 8,
			want:      []int{3, 2},
		},
		{
			name:      "drained lots are skipped",
			batches:   []models.ProductBatch{batch(day1, 5, 5), batch(day2, 10, 3), batch(day3, 4, 0)},
			requested: 9,
			want:      []int{0, 7, 2},
		},
		{
			name:      "single lot covers the request",
			batches:   []models.ProductBatch{batch(day1, 20, 0), batch(day2, 20, 0)},
			requested: 4,
			want:      []int{4, 0},
		},
		{
			name:      "no lots",
			batches:   nil,
			requested: 5,
			want:      []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanConsumption(tt.batches, tt.requested)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPlanConsumptionLeavesShortfallSilently(t *testing.T) {
	day1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	batches := []models.ProductBatch{batch(day1, 5, 0)}

	draws := PlanConsumption(batches, 8)

	consumed := 0
	for _, d := range draws {
		consumed += d
	}
	if consumed != 5 {
		t.Fatalf("consumed %d, want all 5 available units", consumed)
	}
	// The remaining 3 units are unfulfilled; no error channel exists for the
	// shortfall.
}
