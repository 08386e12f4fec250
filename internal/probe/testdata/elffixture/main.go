// Command elffixture is linked without stripping so its symbol table can be read.
package main

//go:noinline
func jitterbufferPut() int { return 1 }

func main() {
	_ = jitterbufferPut()
}
