package domain

import "testing"

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {OrderStatusRefunded},
		OrderStatusCancelled:  {},
		OrderStatusRefunded:   {},
	}
	all := []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded,
	}

	// 穷举整张迁移矩阵：白名单之外一律拒绝
	for from, targets := range allowed {
		want := make(map[OrderStatus]bool, len(targets))
		for _, target := range targets {
			want[target] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != want[to] {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, want[to])
			}
		}
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	terminals := map[OrderStatus]bool{
		OrderStatusPending:    false,
		OrderStatusProcessing: false,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  false,
		OrderStatusCancelled:  true,
		OrderStatusRefunded:   true,
	}
	for status, want := range terminals {
		if got := status.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{"pending", "processing", "shipped", "delivered", "cancelled", "refunded"} {
		if !ValidOrderStatus(s) {
			t.Errorf("ValidOrderStatus(%s) = false, want true", s)
		}
	}
	for _, s := range []string{"", "Pending", "returned", "teleported"} {
		if ValidOrderStatus(s) {
			t.Errorf("ValidOrderStatus(%s) = true, want false", s)
		}
	}
}

func TestOrder_TotalValid(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  bool
	}{
		{
			name:  "总额吻合",
			order: Order{Subtotal: 100, ShippingCost: 10, Tax: 5, Discount: 15, Total: 100},
			want:  true,
		},
		{
			name:  "浮点微差容忍",
			order: Order{Subtotal: 0.1, ShippingCost: 0.2, Total: 0.3},
			want:  true,
		},
		{
			name:  "总额不吻合",
			order: Order{Subtotal: 100, Total: 90},
			want:  false,
		},
		{
			name:  "折扣超过应付",
			order: Order{Subtotal: 50, Discount: 80, Total: -30},
			want:  false,
		},
		{
			name:  "prepayment定金不影响总额",
			order: Order{Subtotal: 100, DepositApplied: 30, Total: 100},
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.order.TotalValid(); got != tt.want {
				t.Errorf("TotalValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
