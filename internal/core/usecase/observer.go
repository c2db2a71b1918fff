package usecase

type noopObserver struct{}

func (noopObserver) ObserveRefinement(string)         {}
func (noopObserver) ObserveBranch(string, int, error) {}
