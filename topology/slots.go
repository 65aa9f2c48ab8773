// Copyright 2023 StreamNative, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package topology

import "math"

const endpointFieldsCount = 3

// ParseClusterSlots parses a decoded `CLUSTER SLOTS` reply.
//
// The reply is an array whose elements have the shape
//
//	[start, end, [host, port, node-id, ...], [host, port, node-id, ...] ...]
//
// Integers are expected as int64 (int is accepted as well) and strings either
// as string or []byte. Elements without integer bounds are dropped, replicas
// that cannot be decoded are dropped individually.
func ParseClusterSlots(reply []any) SlotDistribution {
	ranges := make([]SlotRange, 0, len(reply))
	total := 0

	for _, element := range reply {
		r, ok := parseSlotRange(element)
		if !ok {
			continue
		}
		ranges = append(ranges, r)
		total += r.SlotsCount()
	}

	return SlotDistribution{
		TotalSlots:         total,
		MaxSlots:           MaxSlots,
		CoveragePercentage: Coverage(total),
		Ranges:             ranges,
	}
}

// Coverage is the percentage of the keyspace represented by totalSlots,
// rounded to 2 decimal places.
func Coverage(totalSlots int) float64 {
	if totalSlots == 0 {
		return 0
	}
	return math.Round(float64(totalSlots)/MaxSlots*100*100) / 100
}

func parseSlotRange(element any) (SlotRange, bool) {
	fields, ok := element.([]any)
	if !ok || len(fields) < 3 {
		return SlotRange{}, false
	}

	start, ok := asInteger(fields[0])
	if !ok {
		return SlotRange{}, false
	}
	end, ok := asInteger(fields[1])
	if !ok {
		return SlotRange{}, false
	}

	r := SlotRange{
		Start:    start,
		End:      end,
		Replicas: make([]NodeEndpoint, 0, len(fields)-3),
	}
	if master, ok := parseEndpoint(fields[2]); ok {
		r.Master = &master
	}
	for _, f := range fields[3:] {
		if replica, ok := parseEndpoint(f); ok {
			r.Replicas = append(r.Replicas, replica)
		}
	}
	return r, true
}

func parseEndpoint(value any) (NodeEndpoint, bool) {
	fields, ok := value.([]any)
	if !ok || len(fields) < endpointFieldsCount {
		return NodeEndpoint{}, false
	}

	port, _ := asInteger(fields[1])
	return NodeEndpoint{
		Host:   asString(fields[0]),
		Port:   port,
		NodeID: asString(fields[2]),
	}, true
}

func asInteger(value any) (int, bool) {
	switch v := value.(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}
