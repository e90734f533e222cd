package empfile

// SamplerIndex returns the position of smp within the Samplers of the
// document, or -1 if it is not present.
func (doc *Document) SamplerIndex(smp *TextureSampler) int {
	if smp == nil {
		return -1
	}
	for i, s := range doc.Samplers {
		if s == smp {
			return i
		}
	}
	return -1
}

// AddSampler appends smp to the Samplers of the document, returning its
// index. If smp is already present, its existing index is returned.
func (doc *Document) AddSampler(smp *TextureSampler) int {
	if i := doc.SamplerIndex(smp); i >= 0 {
		return i
	}
	doc.Samplers = append(doc.Samplers, smp)
	return len(doc.Samplers) - 1
}

// RemoveSampler removes smp from the Samplers of the document. Every texture
// slot that refers to smp is cleared. Returns false if smp is not present.
func (doc *Document) RemoveSampler(smp *TextureSampler) bool {
	i := doc.SamplerIndex(smp)
	if i < 0 {
		return false
	}
	doc.Samplers[i] = nil
	doc.Samplers = append(doc.Samplers[:i], doc.Samplers[i+1:]...)

	doc.Walk(func(node, _ *Node, _ EmitterShape) bool {
		if e := node.Emission(); e != nil {
			for slot, s := range e.Texture.Samplers {
				if s == smp {
					e.Texture.Samplers[slot] = nil
				}
			}
		}
		return true
	})
	return true
}

// SamplerRef is a texture slot of an emission that refers to a sampler.
type SamplerRef struct {
	Node *Node
	Slot int
}

// SamplerRefs returns every texture slot in the document that refers to
// smp, in tree order.
func (doc *Document) SamplerRefs(smp *TextureSampler) []SamplerRef {
	var refs []SamplerRef
	doc.Walk(func(node, _ *Node, _ EmitterShape) bool {
		if e := node.Emission(); e != nil {
			for slot, s := range e.Texture.Samplers {
				if s != nil && s == smp {
					refs = append(refs, SamplerRef{Node: node, Slot: slot})
				}
			}
		}
		return true
	})
	return refs
}

// DanglingSamplers returns the texture slots in the document that refer to
// samplers not present in Samplers. Such a document cannot be encoded.
func (doc *Document) DanglingSamplers() []SamplerRef {
	present := make(map[*TextureSampler]bool, len(doc.Samplers))
	for _, s := range doc.Samplers {
		present[s] = true
	}
	var refs []SamplerRef
	doc.Walk(func(node, _ *Node, _ EmitterShape) bool {
		if e := node.Emission(); e != nil {
			for slot, s := range e.Texture.Samplers {
				if s != nil && !present[s] {
					refs = append(refs, SamplerRef{Node: node, Slot: slot})
				}
			}
		}
		return true
	})
	return refs
}
