package patterns

import (
	"github.com/hupe1980/agentweave/agent"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/model"
)

const curatorPrompt = `You are an expert ingredient curator and food scientist.
Based on the cuisine type and dietary preferences provided, suggest a list of
fresh, high-quality ingredients for a delicious recipe.

Consider:
- Seasonal availability
- Flavor combinations
- Dietary restrictions
- Authenticity to the cuisine

Cuisine: {{.cuisine}}
Dietary Preferences: {{.dietary}}
Meal Type: {{.mealType}}

Provide a well-organized list of ingredients with approximate quantities.
Return only the ingredient list and nothing else.`

const cookingPrompt = `You are a professional chef and culinary instructor.
Using the following ingredients, create detailed step-by-step cooking instructions.

Include:
- Preparation steps
- Cooking techniques and methods
- Timing for each step
- Temperature settings
- Plating suggestions

Ingredients:
{{.ingredients}}

Create clear, easy-to-follow instructions that will result in a restaurant-quality dish.
Return only the cooking instructions and nothing else.`

const nutritionPrompt = `You are a certified nutritionist and dietitian.
Analyze the following recipe and provide comprehensive nutritional information.

Include:
- Estimated calories per serving
- Macronutrient breakdown (protein, carbs, fats)
- Key vitamins and minerals
- Health benefits
- Dietary considerations
- Serving size recommendations

Recipe:
{{.recipe}}

Provide a professional nutritional analysis.
Return only the nutritional information and nothing else.`

// newRecipe builds the recipe pipeline: ingredients, then cooking method,
// then nutrition. Each stage reads the previous stage's output.
func newRecipe(llm model.Model, opts Options) engine.Workflow {
	const flow = "Sequential Flow"

	curator := leaf(llm, opts, flow, "IngredientCurator", func(o *agent.ModelAgentOptions) {
		o.Description = "Curates ingredients based on cuisine type and dietary preferences"
		o.Prompt = curatorPrompt
		o.InputKeys = []string{"cuisine", "dietary", "mealType"}
		o.OutputKey = "ingredients"
	})

	designer := leaf(llm, opts, flow, "CookingMethodDesigner", func(o *agent.ModelAgentOptions) {
		o.Description = "Designs cooking methods and step-by-step instructions"
		o.Prompt = cookingPrompt
		o.InputKeys = []string{"ingredients"}
		o.OutputKey = "recipe"
	})

	analyst := leaf(llm, opts, flow, "NutritionalAnalyst", func(o *agent.ModelAgentOptions) {
		o.Description = "Analyzes nutritional content and provides health insights"
		o.Prompt = nutritionPrompt
		o.InputKeys = []string{"recipe"}
		o.OutputKey = "nutritionalInfo"
	})

	root := agent.NewSequentialAgent("RecipeDeveloper", []core.Agent{curator, designer, analyst}, func(o *agent.SequentialOptions) {
		o.Description = "Develops a recipe with cooking instructions and nutritional analysis"
	})

	return engine.Workflow{
		Name:        Recipe,
		Description: "Sequential recipe development: ingredients, cooking method, nutrition",
		Root:        root,
	}
}
