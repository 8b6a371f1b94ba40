package training

import (
	"testing"

	"github.com/gfmartins/crimecluster/pkg/models"
)

func baseParams() models.TrainingParams {
	return models.TrainingParams{
		Municipalities: []int64{3550308, 3304557, 2927408},
		CrimeID:        4,
		PeriodStart:    "2018-01",
		PeriodEnd:      "2020-12",
		Algorithm:      models.AlgorithmCentroid,
		KMin:           2,
		KMax:           8,
	}
}

// --- Normalize tests ---

func TestNormalize_Defaults(t *testing.T) {
	p := Normalize(models.TrainingParams{
		CrimeID:     4,
		PeriodStart: "2018-01",
		PeriodEnd:   "2020-12",
	})

	if p.Algorithm != models.AlgorithmCentroid {
		t.Errorf("expected default algorithm %q, got %q", models.AlgorithmCentroid, p.Algorithm)
	}
	if p.KMin != models.DefaultKMin {
		t.Errorf("expected default k_min %d, got %d", models.DefaultKMin, p.KMin)
	}
	if p.KMax != models.DefaultKMax {
		t.Errorf("expected default k_max %d, got %d", models.DefaultKMax, p.KMax)
	}
}

func TestNormalize_KeepsZeroThreshold(t *testing.T) {
	p := baseParams()
	p.MissingThreshold = 0

	if got := Normalize(p).MissingThreshold; got != 0 {
		t.Errorf("explicit threshold 0 rewritten to %v", got)
	}
}

func TestNormalize_SortsAndDeduplicatesMunicipalities(t *testing.T) {
	p := baseParams()
	p.Municipalities = []int64{30, 10, 20, 10, 30}

	got := Normalize(p).Municipalities
	want := []int64{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNormalize_LowercasesAlgorithm(t *testing.T) {
	p := baseParams()
	p.Algorithm = "  Shape "
	if got := Normalize(p).Algorithm; got != models.AlgorithmShape {
		t.Errorf("expected %q, got %q", models.AlgorithmShape, got)
	}
}

func TestNormalize_ZeroPadsPeriods(t *testing.T) {
	p := baseParams()
	p.PeriodStart = "2018-1"
	p.PeriodEnd = " 2020-9 "

	got := Normalize(p)
	if got.PeriodStart != "2018-01" {
		t.Errorf("expected 2018-01, got %q", got.PeriodStart)
	}
	if got.PeriodEnd != "2020-09" {
		t.Errorf("expected 2020-09, got %q", got.PeriodEnd)
	}
}

// --- Fingerprint tests ---

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := baseParams()
	b := baseParams()
	b.Municipalities = []int64{2927408, 3550308, 3304557}

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("municipality order should not change the fingerprint")
	}
}

func TestFingerprint_EquivalentSpellings(t *testing.T) {
	a := baseParams()
	b := baseParams()
	b.Algorithm = "CENTROID"
	b.PeriodStart = "2018-1"
	b.Municipalities = append([]int64{}, b.Municipalities...)
	b.Municipalities = append(b.Municipalities, b.Municipalities[0])

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("equivalent spellings should fingerprint identically")
	}
}

func TestFingerprint_DistinguishesParameters(t *testing.T) {
	a := baseParams()

	variants := []func(*models.TrainingParams){
		func(p *models.TrainingParams) { p.CrimeID = 5 },
		func(p *models.TrainingParams) { p.PeriodEnd = "2021-01" },
		func(p *models.TrainingParams) { p.Algorithm = models.AlgorithmShape },
		func(p *models.TrainingParams) { p.KMax = 9 },
		func(p *models.TrainingParams) { p.Municipalities = append(p.Municipalities, 1100015) },
		func(p *models.TrainingParams) { p.MissingThreshold = 0.3 },
		func(p *models.TrainingParams) { p.MissingThreshold = models.DefaultMissingThreshold },
	}

	fpA := Fingerprint(a)
	for i, mutate := range variants {
		b := baseParams()
		b.Municipalities = append([]int64{}, a.Municipalities...)
		mutate(&b)
		if Fingerprint(b) == fpA {
			t.Errorf("variant %d should change the fingerprint", i)
		}
	}
}

func TestFingerprint_IsLowercaseHex(t *testing.T) {
	fp := Fingerprint(baseParams())
	if len(fp) != 64 {
		t.Fatalf("expected 64 char hex string, got %d chars: %s", len(fp), fp)
	}
	for _, c := range fp {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("fingerprint contains non-lowercase-hex char: %c", c)
			break
		}
	}
}
