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


package common

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/devstack-core/devprobe/backend"
	"github.com/devstack-core/devprobe/topology"
)

// Texter is implemented by values with their own text rendering.
type Texter interface {
	WriteText(w io.Writer) error
}

const shortIDLength = 8

func writeText(out io.Writer, value any) error {
	switch v := value.(type) {
	case Texter:
		return v.WriteText(out)
	case []backend.Result:
		for _, r := range v {
			if err := writeResult(out, r); err != nil {
				return err
			}
		}
		return nil
	case backend.Result:
		return writeResult(out, v)
	case topology.NodeList:
		return writeNodes(out, v)
	case topology.SlotDistribution:
		return writeSlots(out, v)
	case topology.ClusterInfo:
		return writeInfoMap(out, v.ClusterInfo)
	case topology.NodeInfo:
		return writeNodeInfo(out, v)
	default:
		_, err := fmt.Fprintf(out, "%+v\n", v)
		return err
	}
}

func writeResult(out io.Writer, r backend.Result) error {
	if _, err := fmt.Fprintf(out, "%s: %s (%s)\n", r.Backend, r.Kind, r.Duration); err != nil {
		return err
	}
	if r.Err != nil {
		_, err := fmt.Fprintf(out, "  error: %v\n", r.Err)
		return err
	}
	if r.Data == nil {
		return nil
	}
	return writeText(&indented{w: out, prefix: "  "}, r.Data)
}

func writeNodes(out io.Writer, l topology.NodeList) error {
	if _, err := fmt.Fprintf(out, "%d nodes, %s slots assigned\n",
		l.TotalNodes, humanize.Comma(int64(l.SlotsCount()))); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tADDRESS\tROLE\tMASTER\tSLOTS\tLINK")
	for _, n := range l.Nodes {
		master := "-"
		if n.MasterID != nil {
			master = shortID(*n.MasterID)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s:%d\t%s\t%s\t%s\t%s\n",
			shortID(n.NodeID), n.Host, n.Port, n.Role, master,
			humanize.Comma(int64(n.SlotsCount)), n.LinkState)
	}
	return tw.Flush()
}

func writeSlots(out io.Writer, d topology.SlotDistribution) error {
	if _, err := fmt.Fprintf(out, "%s of %s slots assigned (%s%%)\n",
		humanize.Comma(int64(d.TotalSlots)), humanize.Comma(int64(d.MaxSlots)),
		humanize.CommafWithDigits(d.CoveragePercentage, 2)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RANGE\tSLOTS\tMASTER\tREPLICAS")
	for _, r := range d.Ranges {
		master := "-"
		if r.Master != nil {
			master = fmt.Sprintf("%s:%d", r.Master.Host, r.Master.Port)
		}
		_, _ = fmt.Fprintf(tw, "%d-%d\t%s\t%s\t%d\n",
			r.Start, r.End, humanize.Comma(int64(r.SlotsCount())), master, len(r.Replicas))
	}
	return tw.Flush()
}

func writeNodeInfo(out io.Writer, info topology.NodeInfo) error {
	if _, err := fmt.Fprintf(out, "node %s\n", info.Node); err != nil {
		return err
	}
	for _, name := range sortedKeys(info.Info) {
		if _, err := fmt.Fprintf(out, "# %s\n", name); err != nil {
			return err
		}
		if err := writeInfoMap(out, info.Info[name]); err != nil {
			return err
		}
	}
	return nil
}

func writeInfoMap(out io.Writer, m topology.InfoMap) error {
	for _, key := range sortedKeys(m) {
		if _, err := fmt.Fprintf(out, "%s: %s\n", key, m[key]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

// indented prefixes every line written through it.
type indented struct {
	w       io.Writer
	prefix  string
	midLine bool
}

func (i *indented) Write(p []byte) (int, error) {
	var sb strings.Builder
	for _, b := range p {
		if !i.midLine {
			sb.WriteString(i.prefix)
			i.midLine = true
		}
		sb.WriteByte(b)
		if b == '\n' {
			i.midLine = false
		}
	}
	if _, err := io.WriteString(i.w, sb.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}
