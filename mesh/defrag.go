package mesh

// Defragment compacts the vertex and element arenas after a wave of logical
// erasures, reassigning dense indices and rewriting every adjacency list. It
// returns the old-to-new vertex index map (-1 for vertices that were
// removed). Consumers that assume dense indexing must run this before
// reading the arenas.
func (m *Mesh) Defragment() []int {
	nloc := m.NLoc
	oldNNodes := int(m.NNodes)
	oldNElements := int(m.NElements)

	// Vertices referenced by a live element survive.
	aliveVertex := make([]bool, oldNNodes)
	for e := 0; e < oldNElements; e++ {
		n := m.ENList[e*nloc : (e+1)*nloc]
		if n[0] < 0 {
			continue
		}
		for _, v := range n {
			aliveVertex[v] = true
		}
	}

	vertexMap := make([]int, oldNNodes)
	newNNodes := 0
	for v := 0; v < oldNNodes; v++ {
		if aliveVertex[v] {
			vertexMap[v] = newNNodes
			newNNodes++
		} else {
			vertexMap[v] = -1
		}
	}

	elementMap := make([]int, oldNElements)
	newNElements := 0
	for e := 0; e < oldNElements; e++ {
		if m.ENList[e*nloc] < 0 {
			elementMap[e] = -1
		} else {
			elementMap[e] = newNElements
			newNElements++
		}
	}

	coords := make([]float64, newNNodes*m.NDim)
	metric := make([]float64, newNNodes*m.MSize)
	owner := make([]int, newNNodes)
	gnn := make([]int, newNNodes)
	nnList := make([][]int, newNNodes)
	neList := make([]map[int]bool, newNNodes)
	for v := 0; v < oldNNodes; v++ {
		nv := vertexMap[v]
		if nv < 0 {
			continue
		}
		copy(coords[nv*m.NDim:], m.GetCoords(v))
		copy(metric[nv*m.MSize:], m.GetMetric(v))
		owner[nv] = m.NodeOwner[v]
		gnn[nv] = m.Lnn2Gnn[v]
		nn := make([]int, 0, len(m.NNList[v]))
		for _, w := range m.NNList[v] {
			if w >= 0 && vertexMap[w] >= 0 {
				nn = append(nn, vertexMap[w])
			}
		}
		nnList[nv] = nn
		ne := make(map[int]bool, len(m.NEList[v]))
		for e := range m.NEList[v] {
			if elementMap[e] >= 0 {
				ne[elementMap[e]] = true
			}
		}
		neList[nv] = ne
	}

	enList := make([]int, newNElements*nloc)
	boundary := make([]int, newNElements*nloc)
	for e := 0; e < oldNElements; e++ {
		ne := elementMap[e]
		if ne < 0 {
			continue
		}
		for i := 0; i < nloc; i++ {
			enList[ne*nloc+i] = vertexMap[m.ENList[e*nloc+i]]
			boundary[ne*nloc+i] = m.Boundary[e*nloc+i]
		}
	}

	recvHalo := make(map[int]bool, len(m.RecvHalo))
	for v := range m.RecvHalo {
		if vertexMap[v] >= 0 {
			recvHalo[vertexMap[v]] = true
		}
	}
	sendHalo := make(map[int]bool, len(m.SendHalo))
	for v := range m.SendHalo {
		if vertexMap[v] >= 0 {
			sendHalo[vertexMap[v]] = true
		}
	}

	m.NNodes = int64(newNNodes)
	m.NElements = int64(newNElements)
	m.Coords = coords
	m.Metric = metric
	m.NodeOwner = owner
	m.Lnn2Gnn = gnn
	m.NNList = nnList
	m.NEList = neList
	m.ENList = enList
	m.Boundary = boundary
	m.RecvHalo = recvHalo
	m.SendHalo = sendHalo

	return vertexMap
}
