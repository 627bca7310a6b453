package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_settled_total",
		Help: "Total number of carts settled into orders",
	})

	SettlementFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_failed_total",
		Help: "Total number of failed settlement attempts",
	}, []string{"reason"})

	CouponsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupons_applied_total",
		Help: "Total number of coupons applied during settlement",
	})

	LoginLockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "login_lockouts_total",
		Help: "Total number of login attempts rejected by the rate limit guard",
	})

	LoyaltyPointsEarnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_earned_total",
		Help: "Total loyalty points accrued from purchases",
	})

	LoyaltyPointsRedeemedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_redeemed_total",
		Help: "Total loyalty points spent on rewards",
	})
)
