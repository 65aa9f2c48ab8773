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

import (
	"strconv"
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

const (
	nodeFieldsCount = 8

	noMaster         = "-"
	migratingPrefix  = "["
	busPortSeparator = "@"
)

// ParseClusterNodes parses the full text of a `CLUSTER NODES` reply.
//
// Lines with fewer than 8 fields are dropped. The order of the returned nodes
// follows the order of the lines.
func ParseClusterNodes(text string) NodeList {
	nodes := make([]NodeDescriptor, 0)
	for _, line := range strings.Split(text, "\n") {
		if node, ok := ParseNodeLine(line); ok {
			nodes = append(nodes, node)
		}
	}
	return NodeList{
		TotalNodes: len(nodes),
		Nodes:      nodes,
	}
}

// ParseNodeLine parses one line of the node listing. It returns false when the
// line is blank or malformed.
//
// Line format:
//
//	<id> <ip:port@cport> <flags> <master> <ping-sent> <pong-recv> <config-epoch> <link-state> <slot> <slot> ...
func ParseNodeLine(line string) (NodeDescriptor, bool) {
	fields := strings.Fields(line)
	if len(fields) < nodeFieldsCount {
		return NodeDescriptor{}, false
	}

	host, port := parseAddress(fields[1])
	rawFlags := fields[2]

	node := NodeDescriptor{
		NodeID:     fields[0],
		Host:       host,
		Port:       port,
		Role:       classifyRole(rawFlags),
		Flags:      parseFlags(rawFlags),
		PingSent:   fields[4],
		PongRecv:   fields[5],
		LinkState:  fields[7],
		SlotRanges: make([]SlotSpan, 0),
	}

	if fields[3] != noMaster {
		masterID := fields[3]
		node.MasterID = &masterID
	}

	if epoch, err := strconv.ParseInt(fields[6], 10, 64); err == nil {
		node.ConfigEpoch = epoch
	}

	for _, token := range fields[nodeFieldsCount:] {
		span, ok := parseSlotToken(token)
		if !ok {
			continue
		}
		node.SlotRanges = append(node.SlotRanges, span)
		node.SlotsCount += span.Len()
	}

	return node, true
}

// parseAddress splits "host:port@cport" into host and client port. The split
// happens on the last colon so that IPv6 hosts are preserved.
func parseAddress(address string) (host string, port int) {
	hostPort, _, _ := strings.Cut(address, busPortSeparator)

	idx := strings.LastIndex(hostPort, ":")
	if idx < 0 {
		return hostPort, 0
	}

	host = hostPort[:idx]
	if p, err := strconv.Atoi(hostPort[idx+1:]); err == nil {
		port = p
	}
	return host, port
}

// classifyRole matches on substrings of the raw flags, so "myself,master"
// is a master and "slave,fail?" a replica.
func classifyRole(rawFlags string) Role {
	switch {
	case strings.Contains(rawFlags, "master"):
		return RoleMaster
	case strings.Contains(rawFlags, "slave"):
		return RoleReplica
	default:
		return RoleUnknown
	}
}

func parseFlags(rawFlags string) []string {
	set := linkedhashset.New()
	for _, f := range strings.Split(rawFlags, ",") {
		set.Add(f)
	}

	flags := make([]string, 0, set.Size())
	for _, f := range set.Values() {
		flags = append(flags, f.(string))
	}
	return flags
}

// parseSlotToken handles the three slot token shapes:
//
//	"233"             a single slot
//	"233-666"         an inclusive range
//	"[233-<-nodeid]"  a slot being imported or migrated, ignored
func parseSlotToken(token string) (SlotSpan, bool) {
	if strings.HasPrefix(token, migratingPrefix) {
		return SlotSpan{}, false
	}

	if strings.Contains(token, "-") {
		parts := strings.Split(token, "-")
		if len(parts) != 2 {
			return SlotSpan{}, false
		}
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return SlotSpan{}, false
		}
		end, err := strconv.Atoi(parts[1])
		if err != nil {
			return SlotSpan{}, false
		}
		return SlotSpan{Start: start, End: end}, true
	}

	slot, err := strconv.Atoi(token)
	if err != nil {
		return SlotSpan{}, false
	}
	return SlotSpan{Start: slot, End: slot}, true
}
