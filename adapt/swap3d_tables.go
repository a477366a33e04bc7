package adapt

// Retriangulation templates for the edge-to-face swap. A cavity of k
// tetrahedra around an interior edge (vk,vl) is bounded by a ring of k apex
// vertices; each template lists the replacement tets as ring positions, with
// ringL and ringK standing for the edge endpoints vl and vk. The
// enumerations reproduce Biswas & Strawn (1994) and Li et al (2005)
// bit-exactly: 1 option for k=3 (3-to-2), 2 options for k=4 (4-to-4), the 5
// distinct triangulations of the pentagonal bipyramid for k=5 (5-to-6) and 1
// option for k=6 (6-to-8). Every call site indexes this table; the
// enumerations live nowhere else.
const (
	ringL = -1 // edge endpoint n[l]
	ringK = -2 // edge endpoint n[k]
)

var swap3dTables = map[int][][][4]int{
	3: {
		{ // 3 tets -> 2 tets
			{0, 1, 2, ringL},
			{1, 0, 2, ringK},
		},
	},
	4: {
		{ // option 1
			{0, 1, 3, ringL},
			{1, 2, 3, ringL},
			{1, 0, 3, ringK},
			{2, 1, 3, ringK},
		},
		{ // option 2
			{0, 1, 2, ringL},
			{0, 2, 3, ringL},
			{0, 2, 1, ringK},
			{0, 3, 2, ringK},
		},
	},
	5: {
		{ // option 1
			{0, 1, 2, ringL},
			{2, 3, 0, ringL},
			{3, 4, 0, ringL},
			{1, 0, 2, ringK},
			{3, 2, 0, ringK},
			{4, 3, 0, ringK},
		},
		{ // option 2
			{0, 1, 4, ringL},
			{1, 3, 4, ringL},
			{1, 2, 3, ringL},
			{0, 4, 1, ringK},
			{1, 4, 3, ringK},
			{1, 3, 2, ringK},
		},
		{ // option 3
			{2, 0, 1, ringL},
			{2, 4, 0, ringL},
			{2, 3, 4, ringL},
			{2, 1, 0, ringK},
			{2, 0, 4, ringK},
			{2, 4, 3, ringK},
		},
		{ // option 4
			{3, 1, 2, ringL},
			{3, 0, 1, ringL},
			{3, 4, 0, ringL},
			{3, 2, 1, ringK},
			{3, 1, 0, ringK},
			{3, 0, 4, ringK},
		},
		{ // option 5
			{4, 0, 1, ringL},
			{4, 1, 2, ringL},
			{4, 2, 3, ringL},
			{4, 1, 0, ringK},
			{4, 2, 1, ringK},
			{4, 3, 2, ringK},
		},
	},
	6: {
		{ // 6 tets -> 8 tets
			{0, 1, 5, ringL},
			{2, 3, 4, ringL},
			{1, 2, 5, ringL},
			{5, 2, 4, ringL},
			{1, 0, 5, ringK},
			{3, 2, 4, ringK},
			{2, 1, 5, ringK},
			{2, 5, 4, ringK},
		},
	},
}
