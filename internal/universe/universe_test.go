package universe

import (
	"context"
	"strings"
	"testing"
	"time"

	"rotator/internal/domain"
	"rotator/internal/store"
)

func TestStaticListAssets(t *testing.T) {
	got, err := Static{"spy", "QQQ", " gld ", "SPY", ""}.ListAssets(context.Background())
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if strings.Join(got, ",") != "SPY,QQQ,GLD" {
		t.Errorf("ListAssets = %v, want [SPY QQQ GLD]", got)
	}
}

func TestFromStoreListAssets(t *testing.T) {
	ms := store.NewMemoryStore()
	d := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if err := ms.WriteBars(context.Background(), []domain.Bar{
		{Symbol: "XLF", Date: d, AdjClose: 1},
		{Symbol: "EEM", Date: d, AdjClose: 1},
	}); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	p, err := New("store", nil, ms)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.ListAssets(context.Background())
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if strings.Join(got, ",") != "EEM,XLF" {
		t.Errorf("ListAssets = %v, want [EEM XLF]", got)
	}
}

func TestNew(t *testing.T) {
	if _, err := New("store", nil, nil); err == nil {
		t.Error("New(store, nil lister) should fail")
	}
	if _, err := New("remote", nil, nil); err == nil {
		t.Error("New(remote) should fail")
	}
	p, err := New("static", []string{"SPY"}, nil)
	if err != nil {
		t.Fatalf("New(static): %v", err)
	}
	if _, ok := p.(Static); !ok {
		t.Errorf("New(static) = %T, want Static", p)
	}
}

func TestParseList(t *testing.T) {
	got, err := ParseList(" spy,QQQ,,gld ,SPY").ListAssets(context.Background())
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if strings.Join(got, ",") != "SPY,QQQ,GLD" {
		t.Errorf("ParseList = %v, want [SPY QQQ GLD]", got)
	}
}
