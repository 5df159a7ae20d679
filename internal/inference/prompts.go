package inference

import "fmt"

// Programs are the topics the first prompt asks the model to choose from.
var Programs = []string{
	"Health Insurance Navigation (Our team helps individuals and families determine if they are eligible for health insurance through the New York State of Health Marketplace in Dutchess, Orange, Putnam, Sullivan and Ulster counties.)",
	"Community Health Advocate Services (MiSN's Community Health Advocates can help you and your family find affordable healthcare if you do not have insurance or access your health insurance benefits!)",
	"CAPP Youth Services (Our youth programs help young people to tap into their own inner resources, create meaningful relationships with their peers and adults, and gain the confidence and skills they need for successful transitions to adulthood.)",
	"Women's Wellness Services (MiSN's Community Health workers have been trained on women and infant health and can connect you with services, resources, education, informal counseling, social support and advocacy when you need a helping hand.)",
	"Perinatal & Lactation Services (Our classes cover what you need to know and do for optimal health and wellness for each of the 3 trimesters of pregnancy and the 4th trimester, after the baby is born.)",
	"Healthy Families NY Putnam County (Our Healthy Families New York accredited home visiting program, seeks to improve the health and well-being of infants and children through home-based services delivered by non-profit organizations in local communities.)",
}

// BuildPrompts renders one prompt per answer/criterion pair. The first one
// also asks for the best matching program.
func BuildPrompts(answers, criteria [4]string) []string {
	topics := ""
	for i, p := range Programs {
		topics += fmt.Sprintf(" %d) %s.", i+1, p)
	}
	out := make([]string, 0, 4)
	out = append(out, fmt.Sprintf(
		"Compare the value in Answer_1: '%s' if it is eligible for criteria_1: '%s'. If it is, give the feedback from the most match topic as the following (the topic is the value before the parenthesis):%s If it's not, summarize the reason in 10 words why it's not eligible.",
		answers[0], criteria[0], topics))
	for i := 1; i < 4; i++ {
		out = append(out, fmt.Sprintf(
			"Compare the value in Answer_%d: '%s' if it is eligible for criteria_%d: '%s'. If it is, summarize the reason in 10 words why it's eligible. If it's not, summarize the reason in 10 words why it's not.",
			i+1, answers[i], i+1, criteria[i]))
	}
	return out
}
