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

import "strings"

// InfoMode selects how ParseInfo treats "#" lines.
type InfoMode int

const (
	// Flat puts every key/value pair in a single section named "".
	Flat InfoMode = iota
	// Sectioned starts a new section on each "# Name" header line.
	Sectioned
)

const sectionHeaderPrefix = "#"

// ParseInfo parses colon-delimited "key:value" lines.
//
// In Flat mode the result holds one section named "". In Sectioned mode pairs
// are grouped under the lower-cased name of the last header seen; pairs before
// the first header are discarded and sections without pairs are not emitted.
func ParseInfo(text string, mode InfoMode) InfoSections {
	sections := make(InfoSections)

	var (
		name    string
		current = make(InfoMap)
		open    = mode == Flat
	)

	flush := func() {
		if open && len(current) > 0 {
			sections[name] = current
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if mode == Sectioned && strings.HasPrefix(line, sectionHeaderPrefix) {
			flush()
			name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, sectionHeaderPrefix)))
			current = make(InfoMap)
			open = true
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found || !open {
			continue
		}
		current[strings.TrimSpace(key)] = ParseValue(strings.TrimSpace(value))
	}
	flush()

	return sections
}

// ParseClusterInfo parses a `CLUSTER INFO` reply into a flat mapping.
func ParseClusterInfo(text string) ClusterInfo {
	info, ok := ParseInfo(text, Flat)[""]
	if !ok {
		info = make(InfoMap)
	}
	return ClusterInfo{ClusterInfo: info}
}

// ParseNodeInfo parses an `INFO` reply of the given node into sections.
func ParseNodeInfo(node, text string) NodeInfo {
	return NodeInfo{
		Node: node,
		Info: ParseInfo(text, Sectioned),
	}
}
