package graph

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

// Format names a topology file format.
type Format string

const (
	// Matrix is one row of whitespace-separated weights per node.
	Matrix Format = "matrix"
	// EdgeList is one "from to weight" triple per line.
	EdgeList Format = "edges"
	// JSON is {"nodes": n, "edges": [{"from": a, "to": b, "weight": w}]}.
	JSON Format = "json"
)

// ParseFormat ...
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Matrix, EdgeList, JSON:
		return f, nil
	default:
		return "", errors.Errorf("unknown topology format %q", s)
	}
}

type jsonTopology struct {
	Nodes int    `codec:"nodes"`
	Edges []Edge `codec:"edges"`
}

// LoadFile reads a topology file in the given format.
func LoadFile(path string, format Format) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening topology")
	}
	defer f.Close()

	var t *Topology
	switch format {
	case Matrix:
		t, err = LoadMatrix(f)
	case EdgeList:
		t, err = LoadEdgeList(f)
	case JSON:
		t, err = LoadJSON(f)
	default:
		err = errors.Errorf("unknown topology format %q", format)
	}

	return t, errors.Wrapf(err, "loading %s", path)
}

// lines yields the non-empty lines of r that are not comments, with their
// line numbers.
func lines(r io.Reader, f func(num int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	num := 0
	for scanner.Scan() {
		num++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := f(num, strings.Fields(line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func atoi(field string, num, col int) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, errors.Wrapf(err, "line %d, column %d: invalid integer", num, col)
	}
	return v, nil
}

// LoadMatrix reads a square weight matrix.
func LoadMatrix(r io.Reader) (*Topology, error) {
	rows := [][]int{}

	err := lines(r, func(num int, fields []string) error {
		row := make([]int, len(fields))
		for i, field := range fields {
			v, err := atoi(field, num, i+1)
			if err != nil {
				return err
			}
			row[i] = v
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewTopology(rows)
}

// LoadEdgeList reads "from to weight" triples. The number of nodes is one more
// than the highest node id.
func LoadEdgeList(r io.Reader) (*Topology, error) {
	edges := []Edge{}
	n := 0

	err := lines(r, func(num int, fields []string) error {
		if len(fields) != 3 {
			return errors.Errorf("line %d: expected 3 columns, got %d", num, len(fields))
		}
		var vals [3]int
		for i, field := range fields {
			v, err := atoi(field, num, i+1)
			if err != nil {
				return err
			}
			vals[i] = v
		}
		e := Edge{From: vals[0], To: vals[1], Weight: vals[2]}
		if e.From < 0 || e.To < 0 {
			return errors.Errorf("line %d: negative node id", num)
		}
		if e.From >= n {
			n = e.From + 1
		}
		if e.To >= n {
			n = e.To + 1
		}
		edges = append(edges, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return FromEdges(n, edges)
}

// LoadJSON reads the JSON format.
func LoadJSON(r io.Reader) (*Topology, error) {
	var jt jsonTopology

	jh := new(codec.JsonHandle)
	dec := codec.NewDecoder(r, jh)
	if err := dec.Decode(&jt); err != nil {
		return nil, errors.Wrap(err, "decoding topology")
	}

	n := jt.Nodes
	for _, e := range jt.Edges {
		if e.From >= n {
			n = e.From + 1
		}
		if e.To >= n {
			n = e.To + 1
		}
	}

	return FromEdges(n, jt.Edges)
}

// WriteJSON encodes t in the JSON format.
func WriteJSON(w io.Writer, t *Topology) error {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	jh.Indent = 2
	enc := codec.NewEncoder(w, jh)
	return enc.Encode(jsonTopology{Nodes: t.N(), Edges: t.Edges()})
}
