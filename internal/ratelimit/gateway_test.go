package ratelimit

import "testing"

func TestGatewayLimiter_AllowGeneral(t *testing.T) {
	limiter := NewGatewayLimiter(GatewayLimits{GeneralPerMinute: 120, QueryPerMinute: 60})

	for i := 0; i < 2; i++ {
		ok, _ := limiter.AllowGeneral("caller-1")
		if !ok {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
}

func TestGatewayLimiter_QueryBucketExhausted(t *testing.T) {
	limiter := NewGatewayLimiter(GatewayLimits{GeneralPerMinute: 600, QueryPerMinute: 1})

	ok, _ := limiter.AllowQuery("caller-1")
	if !ok {
		t.Fatal("first query should be allowed")
	}

	ok, wait := limiter.AllowQuery("caller-1")
	if ok {
		t.Fatal("second immediate query should be denied")
	}
	if wait <= 0 {
		t.Error("expected a positive retry-after wait")
	}
}

func TestGatewayLimiter_SeparateCallers(t *testing.T) {
	limiter := NewGatewayLimiter(GatewayLimits{GeneralPerMinute: 60, QueryPerMinute: 1})

	ok, _ := limiter.AllowQuery("caller-a")
	if !ok {
		t.Fatal("caller-a should be allowed")
	}

	ok, _ = limiter.AllowQuery("caller-b")
	if !ok {
		t.Fatal("caller-b has its own bucket and should be allowed")
	}
}

func TestGatewayLimiter_SetLimitsResets(t *testing.T) {
	limiter := NewGatewayLimiter(GatewayLimits{GeneralPerMinute: 60, QueryPerMinute: 1})

	limiter.AllowQuery("caller-1")
	ok, _ := limiter.AllowQuery("caller-1")
	if ok {
		t.Fatal("expected bucket to be exhausted before reload")
	}

	limiter.SetLimits(GatewayLimits{GeneralPerMinute: 60, QueryPerMinute: 120})

	ok, _ = limiter.AllowQuery("caller-1")
	if !ok {
		t.Fatal("reloaded limits should reset per-caller buckets")
	}
}

func TestGatewayLimiter_ZeroDisablesLimit(t *testing.T) {
	limiter := NewGatewayLimiter(GatewayLimits{GeneralPerMinute: 0, QueryPerMinute: 0})

	for i := 0; i < 50; i++ {
		ok, _ := limiter.AllowGeneral("caller-1")
		if !ok {
			t.Fatalf("zero limit should mean unlimited, denied at request %d", i)
		}
	}
}
