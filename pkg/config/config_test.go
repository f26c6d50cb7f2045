package config

import "testing"

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate_RejectsZeroPageSize(t *testing.T) {
	c := Default()
	c.NodePageSize = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for zero page size")
	}
}

func TestValidate_RejectsBadLoadFactor(t *testing.T) {
	for _, lf := range []float64{0, -0.1, 1.5} {
		c := Default()
		c.LoadFactor = lf
		if err := c.Validate(); err == nil {
			t.Fatalf("expected error for load factor %v", lf)
		}
	}
}

func TestValidate_RejectsNegativeEntryPoints(t *testing.T) {
	c := Default()
	c.EntryPointsSize = -1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative entry points size")
	}
}
