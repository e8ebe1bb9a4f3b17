package router_test

import (
	"context"
	"fmt"

	"github.com/normanking/pmcortex/internal/router"
)

// ExampleClassifier_Classify shows explicit signals resolving without a model.
func ExampleClassifier_Classify() {
	c := router.NewClassifier(nil)

	d, err := c.Classify(context.Background(), router.Signals{
		Requirement: "Add OAuth2 login",
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("Intent: %s\n", d.Intent)
	fmt.Printf("Path: %s\n", d.Path)

	// Output:
	// Intent: feasibility_analysis
	// Path: explicit
}

// ExampleParseIntent demonstrates label normalisation.
func ExampleParseIntent() {
	for _, label := range []string{` "Feature_Analysis". `, "chat", "analysis"} {
		intent, ok := router.ParseIntent(label)
		fmt.Printf("%q %v\n", intent, ok)
	}

	// Output:
	// "feature_analysis" true
	// "chat" true
	// "" false
}
