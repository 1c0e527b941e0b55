package checkout

import (
	"context"
	"time"
)

// Serviceability answers whether a pincode can be delivered to.
type Serviceability interface {
	IsServiceable(ctx context.Context, pincode string) (bool, error)
}

var DefaultPincodes = []string{"400001", "500032", "700001", "600034", "110001"}

// PincodeAllowList is a simulated serviceability lookup against a fixed
// set, answering after delay.
type PincodeAllowList struct {
	codes map[string]struct{}
	delay time.Duration
}

func NewPincodeAllowList(delay time.Duration, codes ...string) *PincodeAllowList {
	if len(codes) == 0 {
		codes = DefaultPincodes
	}
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return &PincodeAllowList{codes: set, delay: delay}
}

func (p *PincodeAllowList) IsServiceable(ctx context.Context, pincode string) (bool, error) {
	if err := wait(ctx, p.delay); err != nil {
		return false, err
	}
	_, ok := p.codes[pincode]
	return ok, nil
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
