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
	"github.com/sirupsen/logrus"

	"github.com/ibi-reports/leaklens/model"
)

// Correlate performs the full outer join across all adapter outputs on the
// business key, producing one immutable group per key. Every record is
// inspected exactly once. Source kinds are iterated in their fixed order so
// group construction is deterministic; the first record seen per source per
// key wins and later ones are discarded — the documented tie-break for any
// source-internal duplicate that survived adapter-level dedup.
//
// Groups only exist for keys present in at least one source, so an empty
// group cannot be built.
func Correlate(sequences map[model.SourceKind][]*model.NormalizedRecord) []*model.CorrelationGroup {
	groups := make(map[string]*model.CorrelationGroup)
	order := make([]string, 0)

	for _, kind := range model.AllSourceKinds {
		for _, record := range sequences[kind] {
			group, ok := groups[record.BusinessKey]
			if !ok {
				group = &model.CorrelationGroup{
					BusinessKey: record.BusinessKey,
					Records:     make(map[model.SourceKind]*model.NormalizedRecord),
				}
				groups[record.BusinessKey] = group
				order = append(order, record.BusinessKey)
			}
			if _, exists := group.Records[kind]; exists {
				logrus.Debugf("duplicate %s record for key %s discarded, first wins", kind, record.BusinessKey)
				continue
			}
			group.Records[kind] = record
		}
	}

	out := make([]*model.CorrelationGroup, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out
}
