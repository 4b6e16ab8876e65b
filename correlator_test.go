/*
Copyright 2025 IBI Reports Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package leaklens

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibi-reports/leaklens/model"
)

func TestCorrelateOuterJoin(t *testing.T) {
	sequences := map[model.SourceKind][]*model.NormalizedRecord{
		model.SourceRefund: {
			record(model.SourceRefund, "A", "refund", "10", nil, 0),
			record(model.SourceRefund, "B", "refund", "20", nil, 1),
		},
		model.SourceReturn: {
			record(model.SourceReturn, "B", "received", "", nil, 0),
			record(model.SourceReturn, "C", "received", "", nil, 1),
		},
	}

	groups := Correlate(sequences)
	assert.Len(t, groups, 3)

	byKey := make(map[string]*model.CorrelationGroup)
	for _, g := range groups {
		byKey[g.BusinessKey] = g
	}

	assert.True(t, byKey["A"].Has(model.SourceRefund))
	assert.False(t, byKey["A"].Has(model.SourceReturn))
	assert.True(t, byKey["B"].Has(model.SourceRefund))
	assert.True(t, byKey["B"].Has(model.SourceReturn))
	assert.False(t, byKey["C"].Has(model.SourceRefund))
	assert.True(t, byKey["C"].Has(model.SourceReturn))
}

func TestCorrelateFirstSeenOrder(t *testing.T) {
	// refund is iterated before return, so refund keys come first.
	sequences := map[model.SourceKind][]*model.NormalizedRecord{
		model.SourceReturn: {
			record(model.SourceReturn, "X", "received", "", nil, 0),
		},
		model.SourceRefund: {
			record(model.SourceRefund, "Y", "refund", "10", nil, 0),
		},
	}

	groups := Correlate(sequences)
	assert.Len(t, groups, 2)
	assert.Equal(t, "Y", groups[0].BusinessKey)
	assert.Equal(t, "X", groups[1].BusinessKey)
}

func TestCorrelateFirstRecordWinsPerSource(t *testing.T) {
	sequences := map[model.SourceKind][]*model.NormalizedRecord{
		model.SourceClaim: {
			record(model.SourceClaim, "A", "open", "", nil, 0),
			record(model.SourceClaim, "A", "closed", "", nil, 1),
		},
	}

	groups := Correlate(sequences)
	assert.Len(t, groups, 1)
	assert.Equal(t, "open", groups[0].Record(model.SourceClaim).StatusCode)
}

func TestCorrelateEmptyInput(t *testing.T) {
	groups := Correlate(map[model.SourceKind][]*model.NormalizedRecord{})
	assert.Empty(t, groups)
}
