package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type row struct {
	name         string
	trainingType string
	installation string
	phone        string
	progress     int
}

var rowFields = Fields[row]{
	FoldedText:   func(r row) []string { return []string{r.name, r.trainingType, r.installation} },
	ExactText:    func(r row) []string { return []string{r.phone} },
	TrainingType: func(r row) string { return r.trainingType },
	Installation: func(r row) string { return r.installation },
}

func sample() []row {
	return []row{
		{name: "Ade", trainingType: "HOD", installation: "Kwasu", phone: "+2348001", progress: 40},
		{name: "Bola", trainingType: "Minister", installation: "Tanke", phone: "+2348002", progress: 75},
		{name: "Chidi", trainingType: "HOD", installation: "Offa Garage", phone: "+2348003", progress: 40},
		{name: "dada", trainingType: "Pastor", installation: "Kwasu", phone: "+2348004", progress: 10},
	}
}

func TestApplyEmptyFilterIsIdentity(t *testing.T) {
	rows := sample()
	got := Apply(rows, Filter{}, rowFields)
	assert.Equal(t, rows, got)
}

func TestApplyTextMatchIsCaseInsensitive(t *testing.T) {
	got := Apply(sample(), Filter{Query: "DADA"}, rowFields)
	assert.Len(t, got, 1)
	assert.Equal(t, "dada", got[0].name)

	got = Apply(sample(), Filter{Query: "kwasu"}, rowFields)
	assert.Len(t, got, 2)
}

func TestApplyPhoneMatchesExactSubstring(t *testing.T) {
	got := Apply(sample(), Filter{Query: "8003"}, rowFields)
	assert.Len(t, got, 1)
	assert.Equal(t, "Chidi", got[0].name)
}

func TestApplyNoMatchReturnsEmpty(t *testing.T) {
	got := Apply(sample(), Filter{Query: "zzz-no-such"}, rowFields)
	assert.Empty(t, got)
}

func TestApplyFacetsAndAcrossAxes(t *testing.T) {
	// One axis restricts, the other stays open.
	got := Apply(sample(), Filter{TrainingTypes: []string{"HOD"}}, rowFields)
	assert.Len(t, got, 2)

	// Both axes must match.
	got = Apply(sample(), Filter{
		TrainingTypes: []string{"HOD"},
		Installations: []string{"Kwasu"},
	}, rowFields)
	assert.Len(t, got, 1)
	assert.Equal(t, "Ade", got[0].name)

	// Facets AND the text query.
	got = Apply(sample(), Filter{Query: "Chidi", Installations: []string{"Kwasu"}}, rowFields)
	assert.Empty(t, got)
}

func TestSortStringAscendingThenDescendingReverses(t *testing.T) {
	asc := sample()
	Sort(asc, func(r row) interface{} { return r.name }, false)

	desc := sample()
	Sort(desc, func(r row) interface{} { return r.name }, true)

	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
}

func TestSortNumeric(t *testing.T) {
	rows := sample()
	Sort(rows, func(r row) interface{} { return r.progress }, false)
	assert.Equal(t, "dada", rows[0].name)
	assert.Equal(t, "Bola", rows[len(rows)-1].name)
}

func TestSortTiesAreStable(t *testing.T) {
	rows := sample()
	Sort(rows, func(r row) interface{} { return r.progress }, false)
	// Ade and Chidi tie on progress and must keep their original order.
	assert.Equal(t, "Ade", rows[1].name)
	assert.Equal(t, "Chidi", rows[2].name)
}

func TestSortMixedTypesKeepsOrder(t *testing.T) {
	rows := sample()
	original := sample()
	Sort(rows, func(r row) interface{} {
		if r.name == "Ade" {
			return r.progress
		}
		return r.name
	}, false)
	// Comparisons across types are "equal", so stability preserves input order.
	assert.Equal(t, original, rows)
}
