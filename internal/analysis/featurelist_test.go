package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFeatureList(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "plain list",
			output: "1. User Authentication and Authorization\n2. Document Management and Search\n3. Reporting and Analytics",
			want:   []string{"User Authentication and Authorization", "Document Management and Search", "Reporting and Analytics"},
		},
		{
			name:   "preamble skipped",
			output: "Here are the capabilities:\n\n1. Billing\n2. Catalog Management",
			want:   []string{"Billing", "Catalog Management"},
		},
		{
			name:   "conversational reply rejected",
			output: "I'm excited to help!\n1. Billing",
			want:   []string{},
		},
		{
			name:   "question reply rejected",
			output: "Which output do you want?\n1. \"Capability list only\"",
			want:   []string{},
		},
		{
			name:   "stops after list",
			output: "1. Billing\n2. Search\nThese cover the product.\n3. Ignored Later",
			want:   []string{"Billing", "Search"},
		},
		{
			name:   "invalid items dropped",
			output: "1. Billing\n2. \"Capability list only\"\n3. No features found\n4. What are the features?\n5. Output format: list\n6. 12345\n7. **Order Fulfilment**",
			want:   []string{"Billing", "Order Fulfilment"},
		},
		{
			name:   "repeats dropped ignoring case",
			output: "1. Checkout Payments\n2. Order History\n3. checkout payments\n4. **Checkout Payments**",
			want:   []string{"Checkout Payments", "Order History"},
		},
		{
			name:   "empty",
			output: "   ",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFeatureList(tt.output, DefaultMaxFeatures))
		})
	}
}

func TestParseFeatureList_Cap(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 60; i++ {
		fmt.Fprintf(&b, "%d. Capability Area %d\n", i, i)
	}
	assert.Len(t, ParseFeatureList(b.String(), DefaultMaxFeatures), 50)
	assert.Len(t, ParseFeatureList(b.String(), 5), 5)
}

func TestIsValidFeatureName(t *testing.T) {
	valid := []string{
		"User Management: Admin Panel",
		"Legal Analysis and Intelligence",
		"System Integration and Data Processing",
	}
	for _, name := range valid {
		assert.True(t, IsValidFeatureName(name), name)
	}

	invalid := []string{
		"ab",
		"Please tell me more",
		"Show me the code",
		"No capabilities detected",
		"'Option A'",
		"Do not list endpoints",
		"Section format overview",
		"Is this right?",
		"Example: Billing",
		"Users:",
		"How it works",
		"---",
	}
	for _, name := range invalid {
		assert.False(t, IsValidFeatureName(name), name)
	}
}
