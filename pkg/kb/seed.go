package kb

// DefaultSources is the built-in knowledge base used when no KB file or
// database is configured.
func DefaultSources() []Source {
	return []Source{
		{
			ID:       "checking-fees",
			Product:  "Checking",
			Patterns: []string{`checking.*fee`, `monthly.*fee`, `account.*fee`},
			Answer:   "Our Standard Checking has a $10 monthly service fee, waived with direct deposits totaling $500+/month or a $1,500+ daily balance. ATM withdrawals at our network are free; non-network ATMs may charge fees set by the operator.",
		},
		{
			ID:      "savings-apr",
			Product: "Savings",
			Patterns: []string{
				`savings.*(interest|apy|rate)`,
				`savings.*rate`,
				`(interest|apy).*savings`,
				`tell.*about.*savings`,
				`savings.*account`,
				`what.*savings`,
			},
			Answer: "Our Online Savings currently offers a variable APY that may change at any time. Rates vary by balance tier. For the latest APY, please see our rates page or contact us. Interest compounds daily and is credited monthly.",
		},
		{
			ID:       "creditcard-rewards",
			Product:  "Credit Card",
			Patterns: []string{`credit card.*reward|cash back|points`},
			Answer:   "Our CashBack Card earns 1.5% on everyday purchases, plus rotating 3% categories. Rewards don't expire while your account remains open and in good standing. Terms apply.",
		},
		{
			ID:       "loan-eligibility",
			Product:  "Personal Loan",
			Patterns: []string{`personal loan.*eligibility|qualify|requirements`},
			Answer:   "Eligibility considers credit history, income, and existing obligations. We offer fixed-rate loans with terms from 12-60 months. Checking your rate online won't impact your credit score. Approval is not guaranteed.",
		},
		{
			ID:       "mortgage-preapproval",
			Product:  "Mortgage",
			Patterns: []string{`mortgage.*pre.?approval`},
			Answer:   "A pre-approval provides an estimate of how much you may be able to borrow. It typically requires income, assets, and credit review. Pre-approval letters are usually valid for 60-90 days.",
		},
		{
			ID:       "support-contacts",
			Product:  "Support",
			Patterns: []string{`contact|support|phone|chat|hours`},
			Answer:   "You can reach our support team via secure chat in the mobile app or by phone. For account-specific help, please log in to your online banking and use secure messaging.",
		},
		{
			ID:       "contact-details",
			Product:  "Contact",
			Patterns: []string{`contact|phone|call|email|reach`},
			Answer:   "Contact us: phone 0202055171, email info@amankacombank.com. For account-specific help, please use secure channels.",
		},
		{
			ID:       "business-hours",
			Product:  "Hours",
			Patterns: []string{`hours|open|opening|closing|time`},
			Answer:   "Branch business hours: Mon-Fri 8:00AM-4:00PM.",
		},
		{
			ID:       "main-address",
			Product:  "Contact",
			Patterns: []string{`address|location|gps|where.*located|locator`},
			Answer:   "Head office location: AMANTIN, BONO EAST. GPS: BA-08182-6721.",
		},
		{
			ID:       "branches-list",
			Product:  "Branch",
			Patterns: []string{`branches|branch|locations|where.*branch|nearest.*branch`},
			Answer:   "Branches: Amantin, Atebubu, Kajaji, Yeji, Ejura, Ahwiaa (Kumasi), Kwame Danso, Kejetia (Kumasi).",
		},
		{
			ID:       "branch-managers",
			Product:  "Branch",
			Patterns: []string{`branch manager`, `manager|manageress`, `who.*(heads|runs).*branch`},
			Answer:   "Yeji branch manager: BENJAMIN AYISI. For other branches, call 0202055171 and ask for the branch manager's office.",
		},
		{
			ID:       "deposit-services",
			Product:  "Deposit",
			Patterns: []string{`deposit services|types of accounts|account.*types|current account|salary account|susu account`},
			Answer:   "Deposit services include: Current Account, Salary Account, Savings Account, and Susu Account.",
		},
		{
			ID:       "loan-products",
			Product:  "Loan",
			Patterns: []string{`loan|loans|credit.*(options|products)|agric|business loan|cottage loan|funeral loan|group loan`},
			Answer:   "Loan options include: Agric Loan, Business Loans, Cottage Loans, Funeral Loans, and Group Loans.",
		},
		{
			ID:       "smart-banking-services",
			Product:  "Smart Banking",
			Patterns: []string{`smart banking|atm|gh-?link|e\W?zwich|ezwich|apex transfer|inter\s?bank|ach|interoperability`},
			Answer:   "Smart Banking: GH-Link ATM Services, Apex Transfers (Rural Bank to Rural Bank), E-zwich Services, Inter-Bank Transfers (ACH), and Interoperability Services.",
		},
		{
			ID:       "investment-products",
			Product:  "Investment",
			Patterns: []string{`investment|fixed deposit|christmas account|sala account|woba daakye`},
			Answer:   "Investment products include: Fixed Deposit, Christmas Account, Sala Account, and Woba Daakye.",
		},
	}
}

// DefaultEntries compiles DefaultSources.
func DefaultEntries() []Entry {
	entries, err := CompileAll(DefaultSources())
	if err != nil {
		panic(err)
	}
	return entries
}
