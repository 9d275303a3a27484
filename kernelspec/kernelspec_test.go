package kernelspec

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tikforge/tik/blockid"
)

func TestLoad_ParsesSortedByName(t *testing.T) {
	r := strings.NewReader(`{"beta": [3, 4], "alpha": [1, 2]}`)
	specs, err := Load(r)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Spec{
		{Name: "alpha", IDs: []blockid.ID{1, 2}},
		{Name: "beta", IDs: []blockid.ID{3, 4}},
	}
	if diff := cmp.Diff(want, specs); diff != "" {
		t.Fatalf("Load result mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_RejectsEmptyBlockList(t *testing.T) {
	r := strings.NewReader(`{"empty": []}`)
	if _, err := Load(r); err == nil {
		t.Fatal("Load with an empty block list: want error, got nil")
	}
}

func TestLoad_RejectsDuplicateBlockIDAcrossKernels(t *testing.T) {
	r := strings.NewReader(`{"a": [1, 2], "b": [2, 3]}`)
	if _, err := Load(r); err == nil {
		t.Fatal("Load with a block id claimed by two kernels: want error, got nil")
	}
}

func TestLoad_RejectsMalformedJSON(t *testing.T) {
	r := strings.NewReader(`not json`)
	if _, err := Load(r); err == nil {
		t.Fatal("Load of malformed JSON: want error, got nil")
	}
}
