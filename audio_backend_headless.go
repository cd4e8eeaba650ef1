//go:build headless

package main

func init() {
	compiledFeatures = append(compiledFeatures, "audio:headless")
}

type IRQBeeper struct{}

func NewIRQBeeper() (*IRQBeeper, error) {
	return &IRQBeeper{}, nil
}

func (b *IRQBeeper) Beep()  {}
func (b *IRQBeeper) Start() {}
func (b *IRQBeeper) Close() {}
