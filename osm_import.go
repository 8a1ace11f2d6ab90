package transitiso

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/pkg/errors"
)

// walkableTags are the highway values considered pedestrian-accessible when
// building a walking network from raw OSM data.
var walkableTags = map[string]struct{}{
	"footway":       {},
	"path":          {},
	"pedestrian":    {},
	"steps":         {},
	"living_street": {},
	"residential":   {},
	"service":       {},
	"unclassified":  {},
	"tertiary":      {},
	"secondary":     {},
	"primary":       {},
	"cycleway":      {},
}

type importNode struct {
	useCount int
	node     osm.Node
}

type importWay struct {
	Nodes osm.WayNodes
}

// ImportWalkingFromPBF builds a WalkingNetwork from a file of PBF-format
// (in OSM terms), keeping only walkable ways. Junction nodes (shared by more
// than one way segment) become network nodes; the chains between them become
// edges weighted by spherical length over the walk speed.
/*
	File should have PBF (Protocolbuffer Binary Format) extension according to https://github.com/paulmach/osm
*/
func ImportWalkingFromPBF(fileName string, walkSpeedMps, ceilingSeconds, gridCellMeters float64) (*WalkingNetwork, error) {
	if walkSpeedMps <= 0 {
		walkSpeedMps = DefaultWalkSpeedMps
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "File open")
	}
	defer f.Close()

	scannerWays := osmpbf.New(context.Background(), f, 4)
	defer scannerWays.Close()

	ways := []importWay{}
	nodes := make(map[osm.NodeID]importNode)
	nodesSeen := make(map[osm.NodeID]struct{})

	fmt.Printf("Scanning ways...")
	st := time.Now()
	for scannerWays.Scan() {
		obj := scannerWays.Object()
		if obj.ObjectID().Type() != "way" {
			continue
		}
		way := obj.(*osm.Way)
		tag, ok := way.TagMap()["highway"]
		if !ok {
			continue
		}
		if _, ok := walkableTags[tag]; !ok {
			continue
		}
		preparedWay := importWay{
			Nodes: make(osm.WayNodes, len(way.Nodes)),
		}
		copy(preparedWay.Nodes, way.Nodes)
		ways = append(ways, preparedWay)
		for _, node := range way.Nodes {
			nodesSeen[node.ID] = struct{}{}
		}
	}
	if scannerWays.Err() != nil {
		return nil, errors.Wrap(scannerWays.Err(), "Scanner error on Ways")
	}
	fmt.Printf("Done in %v\n\tWays: %d\n", time.Since(st), len(ways))

	// Seek file to start
	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking")
	}
	scannerNodes := osmpbf.New(context.Background(), f, 4)
	defer scannerNodes.Close()

	fmt.Printf("Scanning nodes...")
	st = time.Now()
	for scannerNodes.Scan() {
		obj := scannerNodes.Object()
		if obj.ObjectID().Type() != "node" {
			continue
		}
		node := obj.(*osm.Node)
		if _, ok := nodesSeen[node.ID]; ok {
			delete(nodesSeen, node.ID)
			nodes[node.ID] = importNode{
				useCount: 0,
				node:     *node,
			}
		}
	}
	if scannerNodes.Err() != nil {
		return nil, errors.Wrap(scannerNodes.Err(), "Scanner error on Nodes")
	}
	fmt.Printf("Done in %v\n\tNodes: %d\n", time.Since(st), len(nodes))

	fmt.Printf("Preparing walking edges...")
	st = time.Now()
	network, edgesNum, err := buildWalkingFromWays(ways, nodes, walkSpeedMps, ceilingSeconds, gridCellMeters)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Done in %v\n\tEdges: %d\n", time.Since(st), edgesNum)
	return network, nil
}

// buildWalkingFromWays turns raw ways into a walking network: junction nodes
// (shared by more than one way segment, or way endpoints) become network
// nodes and the chains between them collapse into single edges weighted by
// spherical length over the walk speed.
func buildWalkingFromWays(ways []importWay, nodes map[osm.NodeID]importNode, walkSpeedMps, ceilingSeconds, gridCellMeters float64) (*WalkingNetwork, int, error) {
	for _, way := range ways {
		for i, wayNode := range way.Nodes {
			node, ok := nodes[wayNode.ID]
			if !ok {
				return nil, 0, errors.Errorf("Missing node with id: %d", wayNode.ID)
			}
			if i == 0 || i == len(way.Nodes)-1 {
				node.useCount += 2
			} else {
				node.useCount++
			}
			nodes[wayNode.ID] = node
		}
	}

	network := NewWalkingNetwork(walkSpeedMps, ceilingSeconds)
	indices := make(map[osm.NodeID]int32)
	indexOf := func(id osm.NodeID) int32 {
		if idx, ok := indices[id]; ok {
			return idx
		}
		n := nodes[id]
		idx := network.AddNode(n.node.Lat, n.node.Lon)
		indices[id] = idx
		return idx
	}
	edgesNum := 0
	for _, way := range ways {
		var source osm.NodeID
		geometry := []GeoPoint{}
		for i, wayNode := range way.Nodes {
			node := nodes[wayNode.ID]
			pt := GeoPoint{Lat: node.node.Lat, Lon: node.node.Lon}
			if i == 0 {
				source = wayNode.ID
				geometry = append(geometry, pt)
				continue
			}
			geometry = append(geometry, pt)
			if node.useCount > 1 || i == len(way.Nodes)-1 {
				weight := getSphericalLengthMeters(geometry) / walkSpeedMps
				err := network.AddWeightedEdge(indexOf(source), indexOf(wayNode.ID), weight, false)
				if err != nil {
					return nil, 0, errors.Wrap(err, "Can't add walking edge")
				}
				edgesNum++
				source = wayNode.ID
				geometry = []GeoPoint{pt}
			}
		}
	}

	if err := network.BuildIndex(gridCellMeters); err != nil {
		return nil, 0, errors.Wrap(err, "Can't index walking network")
	}
	return network, edgesNum, nil
}
