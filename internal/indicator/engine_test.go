package indicator

import (
	"testing"

	"github.com/yucheng-lin/twscan/pkg/logger"
)

func TestComputeOnlyRequestedSeries(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	bars := barsFromCloses([]float64{1, 2, 3, 4, 5, 6}, []int64{10, 20, 30, 40, 50, 60})

	bundle := engine.Compute(bars, Requirements{SMAPeriod: 3})

	if bundle.SMA == nil {
		t.Fatal("requested SMA missing")
	}
	if bundle.RSI != nil || bundle.MACD != nil || bundle.AvgVolume != nil {
		t.Error("unrequested series were computed")
	}
	if bundle.LastIndex() != 5 {
		t.Errorf("LastIndex = %d, want 5", bundle.LastIndex())
	}
}

func TestComputeSharesEqualVolumePeriods(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	bars := barsFromCloses([]float64{1, 2, 3, 4, 5, 6}, []int64{10, 20, 30, 40, 50, 60})

	bundle := engine.Compute(bars, Requirements{AvgVolPeriod: 3, PriorAvgVolPeriod: 3})
	if &bundle.AvgVolume[0] != &bundle.PriorAvgVolume[0] {
		t.Error("equal periods should share one series")
	}

	bundle = engine.Compute(bars, Requirements{AvgVolPeriod: 3, PriorAvgVolPeriod: 5})
	if !bundle.AvgVolume[3].Defined {
		t.Error("3-period average undefined at index 3")
	}
	if bundle.PriorAvgVolume[3].Defined {
		t.Error("5-period average defined too early")
	}
}

func TestComputeEmptyBars(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	bundle := engine.Compute(nil, Requirements{SMAPeriod: 3, RSIPeriod: 14})

	if bundle.LastIndex() != -1 {
		t.Errorf("LastIndex = %d, want -1", bundle.LastIndex())
	}
	if At(bundle.SMA, 0).Defined {
		t.Error("empty bundle must read as undefined")
	}
}

func TestRequirementsAny(t *testing.T) {
	if (Requirements{}).Any() {
		t.Error("zero requirements reported Any")
	}
	if !(Requirements{RSIPeriod: 14}).Any() {
		t.Error("non-zero requirements not reported")
	}
}
